// Package gatewaytest provides a scriptable in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"sync"

	"quarters/portal/internal/gateway"
	"quarters/portal/internal/models"
)

// Fake records every call by method name. A nil function field falls back
// to an empty, successful result.
type Fake struct {
	mu    sync.Mutex
	calls []string

	ListComplaintsFn      func(ctx context.Context) ([]models.Complaint, error)
	InsertComplaintFn     func(ctx context.Context, in gateway.ComplaintInsert) error
	UpdateComplaintFn     func(ctx context.Context, id string, patch gateway.ComplaintPatch) error
	InsertCommentFn       func(ctx context.Context, in gateway.CommentInsert) error
	InsertStatusHistoryFn func(ctx context.Context, in gateway.StatusHistoryInsert) error
	CheckUserExistsFn     func(ctx context.Context, email string) (gateway.RPCResult, error)
	AuthenticateFn        func(ctx context.Context, email, code string) (gateway.AuthResult, error)
	EndSessionFn          func(ctx context.Context, email string) error
	ListDepartmentsFn     func(ctx context.Context) ([]models.Department, error)
	ListAuthoritiesFn     func(ctx context.Context) ([]models.HigherAuthority, error)
	ListUsersFn           func(ctx context.Context) ([]gateway.UserRecord, error)
	InsertUserFn          func(ctx context.Context, in gateway.UserRecord) error
	UpdateUserFn          func(ctx context.Context, id string, patch gateway.UserPatch) error
	DeleteUserFn          func(ctx context.Context, id string) error
	ProbeFn               func(ctx context.Context) error
}

var _ gateway.Gateway = (*Fake)(nil)

func (f *Fake) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) Count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *Fake) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	f.record("ListComplaints")
	if f.ListComplaintsFn != nil {
		return f.ListComplaintsFn(ctx)
	}
	return []models.Complaint{}, nil
}

func (f *Fake) InsertComplaint(ctx context.Context, in gateway.ComplaintInsert) error {
	f.record("InsertComplaint")
	if f.InsertComplaintFn != nil {
		return f.InsertComplaintFn(ctx, in)
	}
	return nil
}

func (f *Fake) UpdateComplaint(ctx context.Context, id string, patch gateway.ComplaintPatch) error {
	f.record("UpdateComplaint")
	if f.UpdateComplaintFn != nil {
		return f.UpdateComplaintFn(ctx, id, patch)
	}
	return nil
}

func (f *Fake) InsertComment(ctx context.Context, in gateway.CommentInsert) error {
	f.record("InsertComment")
	if f.InsertCommentFn != nil {
		return f.InsertCommentFn(ctx, in)
	}
	return nil
}

func (f *Fake) InsertStatusHistory(ctx context.Context, in gateway.StatusHistoryInsert) error {
	f.record("InsertStatusHistory")
	if f.InsertStatusHistoryFn != nil {
		return f.InsertStatusHistoryFn(ctx, in)
	}
	return nil
}

func (f *Fake) CheckUserExists(ctx context.Context, email string) (gateway.RPCResult, error) {
	f.record("CheckUserExists")
	if f.CheckUserExistsFn != nil {
		return f.CheckUserExistsFn(ctx, email)
	}
	return gateway.RPCResult{Success: true}, nil
}

func (f *Fake) Authenticate(ctx context.Context, email, code string) (gateway.AuthResult, error) {
	f.record("Authenticate")
	if f.AuthenticateFn != nil {
		return f.AuthenticateFn(ctx, email, code)
	}
	return gateway.AuthResult{}, nil
}

func (f *Fake) EndSession(ctx context.Context, email string) error {
	f.record("EndSession")
	if f.EndSessionFn != nil {
		return f.EndSessionFn(ctx, email)
	}
	return nil
}

func (f *Fake) ListDepartments(ctx context.Context) ([]models.Department, error) {
	f.record("ListDepartments")
	if f.ListDepartmentsFn != nil {
		return f.ListDepartmentsFn(ctx)
	}
	return nil, nil
}

func (f *Fake) ListAuthorities(ctx context.Context) ([]models.HigherAuthority, error) {
	f.record("ListAuthorities")
	if f.ListAuthoritiesFn != nil {
		return f.ListAuthoritiesFn(ctx)
	}
	return nil, nil
}

func (f *Fake) ListUsers(ctx context.Context) ([]gateway.UserRecord, error) {
	f.record("ListUsers")
	if f.ListUsersFn != nil {
		return f.ListUsersFn(ctx)
	}
	return nil, nil
}

func (f *Fake) InsertUser(ctx context.Context, in gateway.UserRecord) error {
	f.record("InsertUser")
	if f.InsertUserFn != nil {
		return f.InsertUserFn(ctx, in)
	}
	return nil
}

func (f *Fake) UpdateUser(ctx context.Context, id string, patch gateway.UserPatch) error {
	f.record("UpdateUser")
	if f.UpdateUserFn != nil {
		return f.UpdateUserFn(ctx, id, patch)
	}
	return nil
}

func (f *Fake) DeleteUser(ctx context.Context, id string) error {
	f.record("DeleteUser")
	if f.DeleteUserFn != nil {
		return f.DeleteUserFn(ctx, id)
	}
	return nil
}

func (f *Fake) Probe(ctx context.Context) error {
	f.record("Probe")
	if f.ProbeFn != nil {
		return f.ProbeFn(ctx)
	}
	return nil
}

// Unreachable builds the error a gateway returns when the backend is down.
func Unreachable(op string) error {
	return &gateway.Error{Op: op, Kind: gateway.ErrUnreachable, Err: context.DeadlineExceeded}
}
