package messages

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RestRequest is what the rest_api reference node decodes an inbound HTTP
// request into, and what api_client publishes to trigger one. Data is
// itself a tagged record, decoded by peeking its own data_type and asking
// DefaultRegistry for the matching constructor — it is the one place a
// DataModel field nests inside another without a further envelope wrapper.
type RestRequest struct {
	Tagged
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	Data        DataModel `json:"-"`
	ContentType string    `json:"content_type"`
}

type restRequestWire struct {
	Method      string          `json:"method"`
	URL         string          `json:"url"`
	Data        json.RawMessage `json:"data"`
	ContentType string          `json:"content_type"`
}

// MarshalJSON implements json.Marshaler so Data round-trips through its own
// data_type tag like any other record.
func (r RestRequest) MarshalJSON() ([]byte, error) {
	var dataRaw json.RawMessage
	if r.Data != nil {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			return nil, fmt.Errorf("marshaling rest_request data: %w", err)
		}
		dataRaw = raw
	} else {
		dataRaw = json.RawMessage("null")
	}
	return json.Marshal(struct {
		DataType    string          `json:"data_type"`
		Method      string          `json:"method"`
		URL         string          `json:"url"`
		Data        json.RawMessage `json:"data"`
		ContentType string          `json:"content_type"`
	}{"rest_request", r.Method, r.URL, dataRaw, r.ContentType})
}

// UnmarshalJSON implements json.Unmarshaler, resolving the nested Data
// record through DefaultRegistry by its own data_type tag.
func (r *RestRequest) UnmarshalJSON(b []byte) error {
	var disc Tagged
	if err := json.Unmarshal(b, &disc); err != nil {
		return err
	}
	var wire restRequestWire
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&wire); err != nil {
		return err
	}
	r.Tagged = disc
	r.Method = wire.Method
	r.URL = wire.URL
	r.ContentType = wire.ContentType
	if len(wire.Data) == 0 || string(wire.Data) == "null" {
		r.Data = nil
		return nil
	}
	var innerTag Tagged
	if err := json.Unmarshal(wire.Data, &innerTag); err != nil {
		return fmt.Errorf("decoding rest_request data payload: %w", err)
	}
	data, err := DefaultRegistry.Decode(innerTag.Type, wire.Data)
	if err != nil {
		return fmt.Errorf("decoding rest_request data payload: %w", err)
	}
	r.Data = data
	return nil
}

// RestResponse is what rest_api publishes back after a handler runs, and
// what api_client receives. StatusCode is the HTTP status the caller would
// have seen; Data is nil for a failed or non-JSON response.
type RestResponse struct {
	Tagged
	StatusCode int       `json:"status_code"`
	Data       DataModel `json:"-"`
}

type restResponseWire struct {
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
}

func (r RestResponse) MarshalJSON() ([]byte, error) {
	var dataRaw json.RawMessage
	if r.Data != nil {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			return nil, fmt.Errorf("marshaling rest_response data: %w", err)
		}
		dataRaw = raw
	} else {
		dataRaw = json.RawMessage("null")
	}
	return json.Marshal(struct {
		DataType   string          `json:"data_type"`
		StatusCode int             `json:"status_code"`
		Data       json.RawMessage `json:"data"`
	}{"rest_response", r.StatusCode, dataRaw})
}

func (r *RestResponse) UnmarshalJSON(b []byte) error {
	var disc Tagged
	if err := json.Unmarshal(b, &disc); err != nil {
		return err
	}
	var wire restResponseWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	r.Tagged = disc
	r.StatusCode = wire.StatusCode
	if len(wire.Data) == 0 || string(wire.Data) == "null" {
		r.Data = nil
		return nil
	}
	var innerTag Tagged
	if err := json.Unmarshal(wire.Data, &innerTag); err != nil {
		return fmt.Errorf("decoding rest_response data payload: %w", err)
	}
	data, err := DefaultRegistry.Decode(innerTag.Type, wire.Data)
	if err != nil {
		return fmt.Errorf("decoding rest_response data payload: %w", err)
	}
	r.Data = data
	return nil
}
