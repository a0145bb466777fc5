package task

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/flabs/taskmanager/types"
)

// AttributesPayload turns attributes into an event payload
func AttributesPayload(attrs []types.TaskAttribute) map[string]any {
	payload := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		payload[attr.Definition.Name] = attr.Value
	}
	return payload
}

// FlattenPayload renders every payload value as a string
func FlattenPayload(payload map[string]any) map[string]string {
	result := make(map[string]string, len(payload))
	for k, v := range payload {
		switch value := v.(type) {
		case nil:
			result[k] = ""
		case string:
			result[k] = value
		case float64:
			result[k] = strconv.FormatFloat(value, 'f', -1, 64)
		case map[string]any, []any:
			b, err := json.Marshal(value)
			if err != nil {
				result[k] = fmt.Sprint(value)
				continue
			}
			result[k] = string(b)
		default:
			result[k] = fmt.Sprint(value)
		}
	}
	return result
}
