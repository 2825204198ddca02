package draft

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned for invalid proposer construction parameters.
	ErrConfig = errors.New("invalid draft proposer config")
	// ErrContractViolation is returned when a call's inputs do not match the
	// proposer's buffers. It is fatal to the call and must not be retried.
	ErrContractViolation = errors.New("draft proposer contract violation")
)

// ConfigError describes which construction parameter was rejected.
type ConfigError struct {
	Field string
	Value any
	msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrConfig, e.Field, e.Value, e.msg)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// ContractViolation describes a malformed Propose or slot operation.
type ContractViolation struct {
	Slot int
	msg  string
}

func (e *ContractViolation) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("%s: %s", ErrContractViolation, e.msg)
	}
	return fmt.Sprintf("%s: slot %d: %s", ErrContractViolation, e.Slot, e.msg)
}

func (e *ContractViolation) Unwrap() error {
	return ErrContractViolation
}

func configError(field string, value any, msg string) error {
	return &ConfigError{Field: field, Value: value, msg: msg}
}

func violation(slot int, format string, args ...any) error {
	return &ContractViolation{Slot: slot, msg: fmt.Sprintf(format, args...)}
}
