package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// EncodingDescriptor identifies one available video-only stream variant.
type EncodingDescriptor struct {
	ID           string
	QualityLabel string
	Container    string
	Height       int
}

// NumericQuality returns the leading integer of a quality label
// ("1080p60" -> 1080), or 0 if the label does not start with a digit.
func NumericQuality(label string) int {
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0
	}
	return n
}

// QualityLabelFor returns label, or "<height>p" when label is empty.
func QualityLabelFor(label string, height int) string {
	if label != "" {
		return label
	}
	return fmt.Sprintf("%dp", height)
}

// SortByQualityDesc orders encodings by numeric quality, largest first.
// Encodings with equal quality keep their relative order.
func SortByQualityDesc(encodings []EncodingDescriptor) {
	sort.SliceStable(encodings, func(i, j int) bool {
		return NumericQuality(encodings[i].QualityLabel) > NumericQuality(encodings[j].QualityLabel)
	})
}
