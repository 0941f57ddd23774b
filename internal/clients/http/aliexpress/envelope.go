package aliexpress

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SuccessCode is the resp_code the gateway reports for an accepted call.
const SuccessCode = "200"

// flexString accepts both JSON strings and numbers; the gateway is not
// consistent about which it sends for ids and codes.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

type errorResponse struct {
	Code      flexString `json:"code"`
	Msg       string     `json:"msg"`
	SubCode   string     `json:"sub_code"`
	SubMsg    string     `json:"sub_msg"`
	RequestID string     `json:"request_id"`
}

type methodResponse struct {
	RespResult *respResult `json:"resp_result"`
}

type respResult struct {
	RespCode flexString      `json:"resp_code"`
	RespMsg  string          `json:"resp_msg"`
	Result   json.RawMessage `json:"result"`
}

// responseKey is the top-level envelope key for method, e.g.
// aliexpress.affiliate.link.generate -> aliexpress_affiliate_link_generate_response.
func responseKey(method string) string {
	return strings.ReplaceAll(method, ".", "_") + "_response"
}

// decodeEnvelope parses the body as one of the two known envelope variants and
// returns the raw result payload of a successful call.
func decodeEnvelope(method string, body []byte) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, &MalformedResponseError{Method: method, Reason: "body is not a JSON object"}
	}

	if raw, ok := top["error_response"]; ok {
		var er errorResponse
		if err := json.Unmarshal(raw, &er); err != nil {
			return nil, &MalformedResponseError{Method: method, Reason: "error_response: " + err.Error()}
		}
		msg := er.Msg
		if er.SubMsg != "" {
			msg = strings.TrimSpace(msg + " " + er.SubMsg)
		}
		return nil, &APIError{
			Method:    method,
			Code:      er.Code.String(),
			SubCode:   er.SubCode,
			Message:   msg,
			RequestID: er.RequestID,
		}
	}

	key := responseKey(method)
	raw, ok := top[key]
	if !ok {
		return nil, &MalformedResponseError{Method: method, Reason: "missing " + key}
	}
	var mr methodResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return nil, &MalformedResponseError{Method: method, Reason: key + ": " + err.Error()}
	}
	if mr.RespResult == nil {
		return nil, &MalformedResponseError{Method: method, Reason: "missing resp_result"}
	}
	if code := mr.RespResult.RespCode.String(); code != SuccessCode {
		if code == "" {
			return nil, &MalformedResponseError{Method: method, Reason: "missing resp_code"}
		}
		return nil, &APIError{Method: method, Code: code, Message: mr.RespResult.RespMsg}
	}
	result := bytes.TrimSpace(mr.RespResult.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, &MalformedResponseError{Method: method, Reason: "missing result"}
	}
	return result, nil
}
