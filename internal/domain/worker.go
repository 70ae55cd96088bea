package domain

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var ErrMissingWorkerFields = errors.New("missing required fields: name, skill, city, phone")

var digits = regexp.MustCompile(`\d+`)

func (w NewWorker) Validate() error {
	if strings.TrimSpace(w.Name) == "" || strings.TrimSpace(w.Skill) == "" ||
		strings.TrimSpace(w.City) == "" || strings.TrimSpace(w.Phone) == "" {
		return ErrMissingWorkerFields
	}
	return nil
}

// ExperienceYears extracts the first number from free text such as
// "5 Years". It returns nil when the text carries no number.
func (w NewWorker) ExperienceYears() *int {
	m := digits.FindString(w.Experience)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

func (w NewWorker) IsWoman() bool {
	switch strings.ToLower(strings.TrimSpace(w.Category)) {
	case "women", "woman":
		return true
	}
	return false
}
