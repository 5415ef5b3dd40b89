package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("moderator or admin role required")
	ErrNotFound        = errors.New("not found")

	// conflitos de unicidade
	ErrAlreadyTracked = errors.New("tip already tracked")
	ErrReactionExists = errors.New("reaction already exists")

	// violações de política
	ErrTipLocked         = errors.New("tip terms are locked after match start")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTipNotPending     = errors.New("tip is no longer pending")
)

// ValidationError agrega erros por campo; errors.Is(err, ErrValidation) é verdadeiro
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsConflict cobre os erros de unicidade (já acompanhado, reação duplicada)
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyTracked) || errors.Is(err, ErrReactionExists)
}

// IsPolicyViolation cobre anti-cheat e transições inválidas
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrTipLocked) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrTipNotPending)
}
