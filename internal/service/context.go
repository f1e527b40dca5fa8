package service

import (
	"context"
	"slices"

	"classroom/pkg/constraints"
)

type contextKey string

const operatorKey contextKey = "operator"

// OperatorInfo is the authenticated caller of a request.
type OperatorInfo struct {
	UserID      int64
	Username    string
	IsSuperuser bool
	Groups      []string
}

func (o *OperatorInfo) IsAdmin() bool {
	return o != nil && (o.IsSuperuser || slices.Contains(o.Groups, constraints.GroupAdmin))
}

func (o *OperatorInfo) IsInstructor() bool {
	return o != nil && slices.Contains(o.Groups, constraints.GroupInstructor)
}

// IsStaff is true for admins and instructors.
func (o *OperatorInfo) IsStaff() bool {
	return o.IsAdmin() || o.IsInstructor()
}

// WithOperator injects the operator info into the context
func WithOperator(ctx context.Context, op *OperatorInfo) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// GetOperatorInfo retrieves the operator info from the context
func GetOperatorInfo(ctx context.Context) *OperatorInfo {
	val, ok := ctx.Value(operatorKey).(*OperatorInfo)
	if !ok {
		return nil
	}
	return val
}

// GetOperator returns the username, or "anonymous" outside authenticated
// requests.
func GetOperator(ctx context.Context) string {
	op := GetOperatorInfo(ctx)
	if op == nil {
		return "anonymous"
	}
	return op.Username
}
