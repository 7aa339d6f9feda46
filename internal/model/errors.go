package model

import (
	"errors"
	"fmt"
)

// Виды ошибок ядра, проверяются через errors.Is
var (
	ErrInvalidRange    = errors.New("invalid time range")
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrInvalidPricing  = errors.New("invalid pricing")

	ErrSlotConflict     = errors.New("slot overlaps another slot of the teacher")
	ErrSlotLocked       = errors.New("slot has live applications")
	ErrSlotNotAvailable = errors.New("slot is not available")
	ErrSlotFull         = errors.New("slot is full")
	ErrSlotCancelled    = errors.New("slot is cancelled")
	ErrSlotNotDeletable = errors.New("slot has application history")

	ErrDuplicateApplication = errors.New("student already has a live application for this slot")
	ErrAlreadyDecided       = errors.New("application is already decided")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	ErrSideEffectFailed = errors.New("side effect failed")
)

// OpError привязывает вид ошибки к операции
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

// NewOpError создаёт ошибку операции op вида kind
func NewOpError(op string, kind error, format string, args ...any) *OpError {
	return &OpError{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e *OpError) Unwrap() error {
	return e.Kind
}

// SideEffectError сообщает о сбое уведомления или оплаты после коммита.
// Состояние уже сохранено, откатывать нечего.
type SideEffectError struct {
	Effect string
	Err    error
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSideEffectFailed, e.Effect, e.Err)
}

func (e *SideEffectError) Is(target error) bool {
	return target == ErrSideEffectFailed
}

func (e *SideEffectError) Unwrap() error {
	return e.Err
}

// IsCommitted истинно если операция сохранена, даже при сбое побочного эффекта
func IsCommitted(err error) bool {
	return err == nil || errors.Is(err, ErrSideEffectFailed)
}
