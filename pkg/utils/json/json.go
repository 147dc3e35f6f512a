// Package json centralizes JSON codec selection. It wraps bytedance/sonic
// rather than encoding/json, matching the library used across this
// repository's boltdb-backed stores and event payloads.
package json

import "github.com/bytedance/sonic"

var api = sonic.ConfigStd

func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}
