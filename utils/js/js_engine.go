/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package js wraps the goja JavaScript engine for nodes.ScriptNode: compile
// a user-supplied handle(data) function once at node construction, then call
// it per message with the decoded payload's fields.
package js

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// Engine holds one compiled goja VM and its resolved handle function. It is
// not safe for concurrent use — each ScriptNode owns its own Engine, matching
// the one-goroutine-per-node event loop the rest of this runtime assumes.
type Engine struct {
	vm     *goja.Runtime
	handle goja.Callable
}

// NewEngine runs jsScript in a fresh VM and resolves its handle(data)
// function. The script is compiled and validated once, at construction time,
// so a malformed script fails node construction rather than the first
// message.
func NewEngine(jsScript string) (*Engine, error) {
	vm := goja.New()
	if _, err := vm.RunString(jsScript); err != nil {
		return nil, fmt.Errorf("running script source: %w", err)
	}
	handle, ok := goja.AssertFunction(vm.Get("handle"))
	if !ok {
		return nil, errors.New("script does not define a handle(data) function")
	}
	return &Engine{vm: vm, handle: handle}, nil
}

// Execute calls handle(data) and returns its result as a plain map.
// ScriptNode is the only caller; the result is expected to be an object
// literal the script builds itself.
func (e *Engine) Execute(data map[string]any) (map[string]any, error) {
	result, err := e.handle(goja.Undefined(), e.vm.ToValue(data))
	if err != nil {
		return nil, fmt.Errorf("running handle(): %w", err)
	}
	exported, ok := result.Export().(map[string]interface{})
	if !ok {
		return nil, errors.New("handle() must return an object")
	}
	return exported, nil
}
