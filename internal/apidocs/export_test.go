package apidocs

import "encoding/json"

func decodeForTest(s string, doc *Document) error {
	return json.Unmarshal([]byte(s), doc)
}
