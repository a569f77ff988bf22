package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// modelNumber accepts the shapes models use for scores: 82, 82.5, "82" and
// "82%". Decoded values are rounded to the nearest integer.
type modelNumber float64

func (n *modelNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("score %s is not a number", data)
	}
	*n = modelNumber(f)
	return nil
}

func (n modelNumber) int() int {
	return int(math.Round(float64(n)))
}

func (v *ATSScore) UnmarshalJSON(data []byte) error {
	type plain ATSScore
	aux := struct {
		*plain
		Score         modelNumber            `json:"score"`
		SectionScores map[string]modelNumber `json:"sectionScores"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.Score = aux.Score.int()
	v.SectionScores = nil
	if aux.SectionScores != nil {
		v.SectionScores = make(map[string]int, len(aux.SectionScores))
		for k, s := range aux.SectionScores {
			v.SectionScores[k] = s.int()
		}
	}
	return nil
}

func (v *AnswerFeedback) UnmarshalJSON(data []byte) error {
	type plain AnswerFeedback
	aux := struct {
		*plain
		Score modelNumber `json:"score"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.Score = aux.Score.int()
	return nil
}

func (v *JobMatch) UnmarshalJSON(data []byte) error {
	type plain JobMatch
	aux := struct {
		*plain
		MatchPercent modelNumber `json:"matchPercent"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.MatchPercent = aux.MatchPercent.int()
	return nil
}
