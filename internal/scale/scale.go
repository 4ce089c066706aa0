// Package scale implements the SPM three-parameter equivalence scale, which
// converts household composition into a family-size multiplier normalized to
// the two-adult, two-child reference family.
package scale

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// Three-parameter scale weights, fixed by SPM methodology.
const (
	FirstAdultWeight      = 1.0
	AdditionalAdultWeight = 0.5
	ChildWeight           = 0.3
)

// referenceScale is the raw scale of the reference family (2 adults, 2 children).
const referenceScale = FirstAdultWeight + AdditionalAdultWeight + 2*ChildWeight // 2.1

// Raw returns the unnormalized equivalence scale. A household with no
// members yields 0; callers that divide by the scale must guard that case.
func Raw(adults, children int) (float64, error) {
	if adults < 0 {
		return 0, &model.InvalidInputError{Field: "adults", Reason: fmt.Sprintf("must be non-negative, got %d", adults)}
	}
	if children < 0 {
		return 0, &model.InvalidInputError{Field: "children", Reason: fmt.Sprintf("must be non-negative, got %d", children)}
	}

	var adultPart float64
	if adults >= 1 {
		adultPart = FirstAdultWeight + AdditionalAdultWeight*float64(adults-1)
	}
	return adultPart + ChildWeight*float64(children), nil
}

// Scale returns the equivalence scale normalized so the reference family
// maps to exactly 1.0.
func Scale(adults, children int) (float64, error) {
	raw, err := Raw(adults, children)
	if err != nil {
		return 0, err
	}
	return raw / referenceScale, nil
}

// ScaleAll applies Scale element-wise over equal-length slices. The output
// is computed strictly through the scalar path so batch and scalar callers
// always agree bit for bit.
func ScaleAll(adults, children []int) ([]float64, error) {
	if len(adults) != len(children) {
		return nil, eris.Errorf("scale: adults and children length mismatch (%d vs %d)", len(adults), len(children))
	}

	out := make([]float64, len(adults))
	for i := range adults {
		s, err := Scale(adults[i], children[i])
		if err != nil {
			return nil, eris.Wrapf(err, "scale: element %d", i)
		}
		out[i] = s
	}
	return out, nil
}
