package sentiment

import "encoding/json"

// NormalizeLabelPayload extracts a flat list of label strings from the
// decoded JSON a generative model returns when asked for a label array.
// Models drift between several shapes; each is handled as an explicit
// variant:
//
//	["긍정", "부정"]
//	[{"label": "긍정"}, {"label": "부정"}]
//	{"labels": ["긍정", "부정"]}
//	{"anything": ["긍정", "부정"]}
//	"긍정"
//
// Anything else, including malformed JSON, yields an empty slice.
func NormalizeLabelPayload(raw string) []string {
	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	return normalizeValue(parsed)
}

func normalizeValue(parsed interface{}) []string {
	switch v := parsed.(type) {
	case []interface{}:
		return normalizeList(v)
	case map[string]interface{}:
		if labels, ok := v["labels"]; ok {
			return normalizeValue(labels)
		}
		// Fall back to the first list-valued entry.
		for _, val := range v {
			if list, ok := val.([]interface{}); ok {
				return normalizeList(list)
			}
		}
		return nil
	case string:
		return []string{v}
	default:
		return nil
	}
}

func normalizeList(items []interface{}) []string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case string:
			labels = append(labels, it)
		case map[string]interface{}:
			if label, ok := it["label"].(string); ok {
				labels = append(labels, label)
			}
		}
	}
	return labels
}
