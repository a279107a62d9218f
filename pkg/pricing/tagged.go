package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
)

// marshalTagged encodes body as a JSON object with an added "type" member.
func marshalTagged(kind string, body any) ([]byte, error) {
	tag, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	inner := bytes.TrimSpace(raw[1 : len(raw)-1])
	if len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func tagOf(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", errors.Join(ErrInvalidInput, err)
	}
	if head.Type == "" {
		return "", ValidationError{"type": {"is required"}}
	}
	return head.Type, nil
}

func decodeBody(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}

// decodeAs decodes data into a fresh T.
func decodeAs[T any](data []byte) (T, error) {
	var v T
	err := decodeBody(data, &v)
	return v, err
}
