package synth

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

// Error categories for the failures an adapter request can produce.
const (
	CategoryInterfaceShape errors.Category = "interface_shape"
	CategoryInvalidCapture errors.Category = "invalid_capture"
	CategoryAccess         errors.Category = "access"
	CategoryMemberNotFound errors.Category = "member_not_found"
	CategorySynthesis      errors.Category = "adapter_synthesis"
)

// NewInterfaceShapeError reports a target type that does not have exactly one
// abstract method.
func NewInterfaceShapeError(iface string, count int) *errors.Error {
	return errors.New(
		fmt.Sprintf("expected %s to have 1 abstract method, but it has %d", iface, count),
		CategoryInterfaceShape,
	).WithMetadata(map[string]any{
		"interface":        iface,
		"abstract_methods": count,
	})
}

// NewInvalidCaptureError reports captured values that do not fit the implementation.
func NewInvalidCaptureError(message string, metadata map[string]any) *errors.Error {
	return errors.New(message, CategoryInvalidCapture).WithMetadata(metadata)
}

// NewAccessError reports a member that stays inaccessible after visibility override.
func NewAccessError(member string, reason string) *errors.Error {
	return errors.New(fmt.Sprintf("cannot access %s: %s", member, reason), CategoryAccess).
		WithMetadata(map[string]any{"member": member})
}

// NewMemberNotFoundError reports a serialized reference that resolves to nothing.
func NewMemberNotFoundError(ref string, source error) *errors.Error {
	err := errors.New(fmt.Sprintf("cannot resolve %s", ref), CategoryMemberNotFound).
		WithMetadata(map[string]any{"ref": ref})
	err.Source = source
	return err
}

// WrapSynthesisError wraps source as an adapter synthesis failure. Errors that
// already carry a category keep it.
func WrapSynthesisError(source error, message string) error {
	if source == nil {
		return nil
	}
	return errors.Wrap(source, CategorySynthesis, message)
}

// IsInterfaceShape reports whether err is an interface shape failure.
func IsInterfaceShape(err error) bool { return errors.HasCategory(err, CategoryInterfaceShape) }

// IsInvalidCapture reports whether err is a capture mismatch.
func IsInvalidCapture(err error) bool { return errors.HasCategory(err, CategoryInvalidCapture) }

// IsAccess reports whether err is a visibility failure.
func IsAccess(err error) bool { return errors.HasCategory(err, CategoryAccess) }

// IsMemberNotFound reports whether err is a resolution failure.
func IsMemberNotFound(err error) bool { return errors.HasCategory(err, CategoryMemberNotFound) }

// IsSynthesis reports whether err is a wrapped synthesis failure.
func IsSynthesis(err error) bool { return errors.HasCategory(err, CategorySynthesis) }
