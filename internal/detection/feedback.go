package detection

import (
	"strings"

	"github.com/wildcam-go/wildcam/internal/errors"
)

// FeedbackKind classifies a user's verdict on a detection.
type FeedbackKind string

const (
	FeedbackCorrect        FeedbackKind = "correct"
	FeedbackWrongClass     FeedbackKind = "wrong_class"
	FeedbackWrongBBox      FeedbackKind = "wrong_bbox"
	FeedbackFalseDetection FeedbackKind = "false_detection"
	FeedbackOther          FeedbackKind = "other"
)

// FeedbackKinds returns the accepted kinds in form order.
func FeedbackKinds() []FeedbackKind {
	return []FeedbackKind{FeedbackCorrect, FeedbackWrongClass, FeedbackWrongBBox, FeedbackFalseDetection, FeedbackOther}
}

// Valid reports whether k is a declared kind.
func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackCorrect, FeedbackWrongClass, FeedbackWrongBBox, FeedbackFalseDetection, FeedbackOther:
		return true
	}
	return false
}

// ParseFeedbackKind converts a wire name into a FeedbackKind.
func ParseFeedbackKind(s string) (FeedbackKind, error) {
	k := FeedbackKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.Newf("unknown feedback kind %q", s).
			Component("detection").
			Category(errors.CategoryValidation).
			Build()
	}
	return k, nil
}

// FeedbackSubmission is a user's correction for a single detection.
// It is accepted next to the query engine but not processed by it.
type FeedbackSubmission struct {
	DetectionID    string       `json:"detectionId"`
	Kind           FeedbackKind `json:"kind"`
	SuggestedClass string       `json:"suggestedClass,omitempty"` // Only meaningful with FeedbackWrongClass
	Comment        string       `json:"comment,omitempty"`
}

// Validate checks the submission for required fields.
func (f *FeedbackSubmission) Validate() error {
	if strings.TrimSpace(f.DetectionID) == "" {
		return errors.ValidationError("feedback requires a detection id")
	}
	if !f.Kind.Valid() {
		return errors.Newf("unknown feedback kind %q", string(f.Kind)).
			Component("detection").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// CommonAnimalClasses are offered as suggestions when reporting a wrong classification.
var CommonAnimalClasses = []string{
	"Deer", "Fox", "Rabbit", "Raccoon", "Cat", "Dog", "Squirrel",
	"Bear", "Coyote", "Wolf", "Bird", "Mouse", "Opossum",
}
