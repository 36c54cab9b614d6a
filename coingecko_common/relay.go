package coingecko_common

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// DefaultContentsPath is where allorigins style relays put the upstream body
const DefaultContentsPath = "$.contents"

// UnwrapRelayEnvelope extracts the raw upstream body from a relay envelope such as
// {"contents": "<upstream body>", "status": {...}}.
// encoding/json replaces invalid UTF-8 and lone surrogates in the contents
// with U+FFFD, so a damaged body is repaired rather than rejected.
func UnwrapRelayEnvelope(body []byte, contentsPath string) ([]byte, error) {
	if contentsPath == "" {
		contentsPath = DefaultContentsPath
	}

	var envelope any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, NewProxyEnvelopeError("relay response is not json", err)
	}

	value, err := jsonpath.Get(contentsPath, envelope)
	if err != nil {
		return nil, NewProxyEnvelopeError(fmt.Sprintf("relay response has no %s", contentsPath), err)
	}
	// jsonpath may answer with a list of matches
	if list, ok := value.([]any); ok && len(list) > 0 {
		value = list[0]
	}

	contents, ok := value.(string)
	if !ok || contents == "" {
		return nil, NewProxyEnvelopeError(fmt.Sprintf("relay %s is empty or not a string", contentsPath), nil)
	}

	return []byte(contents), nil
}
