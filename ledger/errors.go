package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amonks/ledger/internal/validation"
)

// Code is the stable, user-facing name of an error kind.
type Code string

const (
	CodeTaskNotFound       Code = "TASK_NOT_FOUND"
	CodeBugNotFound        Code = "BUG_NOT_FOUND"
	CodeFileNotFound       Code = "FILE_NOT_FOUND"
	CodeAlreadyClaimed     Code = "ALREADY_CLAIMED"
	CodeTaskClaimed        Code = "TASK_CLAIMED"
	CodeClaimExpired       Code = "CLAIM_EXPIRED"
	CodeInvalidKey         Code = "INVALID_KEY"
	CodeNotClaimed         Code = "NOT_CLAIMED"
	CodeCyclicDependency   Code = "CYCLIC_DEPENDENCY"
	CodeDependencyNotFound Code = "DEPENDENCY_NOT_FOUND"
	CodeDepsNotMet         Code = "DEPS_NOT_MET"
	CodeDerivedStatus      Code = "DERIVED_STATUS"
	CodeInvalidStatus      Code = "INVALID_STATUS"
	CodeInvalidPriority    Code = "INVALID_PRIORITY"
	CodeInvalidRow         Code = "INVALID_ROW"
	CodeInvalidID          Code = "INVALID_ID"
	CodeInvalidBugID       Code = "INVALID_BUG_ID"
	CodeInvalidRef         Code = "INVALID_REF"
	CodeEmptyDescription   Code = "EMPTY_DESCRIPTION"
	CodeInvalidField       Code = "INVALID_FIELD"
	CodeTableNotFound      Code = "TABLE_NOT_FOUND"
	CodeUnknown            Code = "UNKNOWN"
)

var (
	// ErrTaskNotFound is returned when a task with the given ID doesn't exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrBugNotFound is returned when a bug with the given ID doesn't exist.
	ErrBugNotFound = errors.New("bug not found")

	// ErrFileNotFound is returned when the ledger document doesn't exist.
	ErrFileNotFound = errors.New("ledger document not found")

	// ErrAlreadyClaimed is returned when an item already has an unexpired claim.
	ErrAlreadyClaimed = errors.New("item is already claimed")

	// ErrTaskClaimed is returned when editing a claimed item without its lease token.
	ErrTaskClaimed = errors.New("item is claimed; pass its lease token to edit")

	// ErrClaimExpired is returned when a lease token is presented after the TTL.
	ErrClaimExpired = errors.New("claim has expired")

	// ErrInvalidKey is returned when no claim holds the presented lease token.
	ErrInvalidKey = errors.New("invalid lease token")

	// ErrNotClaimed is returned when validating a claim on an unclaimed item.
	ErrNotClaimed = errors.New("item is not claimed")

	// ErrCyclicDependency is returned when a dependency edge would close a cycle.
	ErrCyclicDependency = errors.New("dependency would create a cycle")

	// ErrDependencyNotFound is returned when a new dependency names a missing item.
	ErrDependencyNotFound = errors.New("dependency not found")

	// ErrDepsNotMet is returned when moving an item to ready or done with unsatisfied dependencies.
	ErrDepsNotMet = errors.New("dependencies not met")

	// ErrDerivedStatus is returned when an edit asks for blocked or claimed directly.
	ErrDerivedStatus = errors.New("status is derived and cannot be set directly")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPriority is returned for an unknown priority value.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidRow is returned when a table row has fewer cells than the schema.
	ErrInvalidRow = errors.New("invalid row")

	// ErrInvalidID is returned when a task ID is not a positive integer.
	ErrInvalidID = errors.New("invalid task ID")

	// ErrInvalidBugID is returned when a bug ID lacks its "b" prefix.
	ErrInvalidBugID = errors.New("invalid bug ID")

	// ErrInvalidRef is returned for a malformed reference token.
	ErrInvalidRef = errors.New("invalid reference")

	// ErrTableNotFound is returned when a required table is missing.
	ErrTableNotFound = errors.New("table not found")

	// ErrDuplicateID is returned when a document lists the same ID twice.
	ErrDuplicateID = errors.New("duplicate ID")

	// ErrEmptyDescription is returned when an item would have no description.
	ErrEmptyDescription = errors.New("description is required")

	// ErrInvalidField is returned when an edit sets a field the item does not have.
	ErrInvalidField = errors.New("invalid field")
)

var errorCodes = []struct {
	err  error
	code Code
}{
	{ErrTaskNotFound, CodeTaskNotFound},
	{ErrBugNotFound, CodeBugNotFound},
	{ErrFileNotFound, CodeFileNotFound},
	{ErrAlreadyClaimed, CodeAlreadyClaimed},
	{ErrTaskClaimed, CodeTaskClaimed},
	{ErrClaimExpired, CodeClaimExpired},
	{ErrInvalidKey, CodeInvalidKey},
	{ErrNotClaimed, CodeNotClaimed},
	{ErrCyclicDependency, CodeCyclicDependency},
	{ErrDependencyNotFound, CodeDependencyNotFound},
	{ErrDepsNotMet, CodeDepsNotMet},
	{ErrDerivedStatus, CodeDerivedStatus},
	{ErrInvalidStatus, CodeInvalidStatus},
	{ErrInvalidPriority, CodeInvalidPriority},
	{ErrInvalidID, CodeInvalidID},
	{ErrInvalidBugID, CodeInvalidBugID},
	{ErrInvalidRef, CodeInvalidRef},
	{ErrEmptyDescription, CodeEmptyDescription},
	{ErrInvalidField, CodeInvalidField},
	{ErrDuplicateID, CodeInvalidRow},
	{ErrInvalidRow, CodeInvalidRow},
	{ErrTableNotFound, CodeTableNotFound},
}

// CodeOf returns the code for err, or CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeUnknown
}

// ParseError reports a structural failure at a document line. It aborts the
// whole load.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AlreadyClaimedError carries the lease token of the existing claim.
type AlreadyClaimedError struct {
	ItemID string
	Token  string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("%v: %s (lease %s)", ErrAlreadyClaimed, e.ItemID, e.Token)
}

func (e *AlreadyClaimedError) Unwrap() error {
	return ErrAlreadyClaimed
}

func notFoundError(ref Ref) error {
	if ref.IsBug() {
		return fmt.Errorf("%w: %s", ErrBugNotFound, ref)
	}
	return fmt.Errorf("%w: %s", ErrTaskNotFound, ref)
}

func statusError(value string) error {
	return validation.FormatInvalidValueError(ErrInvalidStatus, Status(value), ValidStatuses())
}

func priorityError(value string) error {
	return validation.FormatInvalidValueError(ErrInvalidPriority, Priority(value), ValidPriorities())
}

func cycleError(from, to Ref, path []Ref) error {
	return fmt.Errorf("%w: %s -> %s (path %s)", ErrCyclicDependency, from, to, strings.Join(RefStrings(path), " -> "))
}
