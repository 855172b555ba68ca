package sentiment

import "strings"

// Label is the sentiment assigned to one survey response.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
	LabelOther    Label = "other"
	// LabelError marks responses whose classification batch failed.
	LabelError Label = "error"
)

// applyNegativeOverride forces a response to negative when any configured
// indicator keyword appears in the raw text. The keyword match is an exact
// substring check and always wins over the classifier output. There is no
// positive counterpart.
func applyNegativeOverride(keywords []string, text string, label Label) Label {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return LabelNegative
		}
	}
	return label
}
