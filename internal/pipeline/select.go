package pipeline

import "fmt"

type Selection struct {
	Index      int
	Label      string
	Confidence string
	Score      float32
}

// Select picks the most probable class. Ties go to the lowest index.
func Select(probs []float32, classes []string) (Selection, error) {
	if len(probs) == 0 {
		return Selection{}, fmt.Errorf("empty probability vector")
	}
	if len(probs) != len(classes) {
		return Selection{}, fmt.Errorf("model returned %d probabilities for %d classes", len(probs), len(classes))
	}

	maxIdx := 0
	maxVal := probs[0]
	for i, val := range probs {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	return Selection{
		Index:      maxIdx,
		Label:      classes[maxIdx],
		Confidence: fmt.Sprintf("%.2f", float64(maxVal)*100),
		Score:      maxVal,
	}, nil
}
