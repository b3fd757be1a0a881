package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"quarters/portal/internal/gateway"
	"quarters/portal/internal/ids"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
	"quarters/portal/internal/notify"
	"quarters/portal/internal/session"
)

const (
	defaultEstimateDays = 3
	fetchKey            = "complaints"
)

// ComplaintService owns the in-memory complaint collection. In a remote
// mode the gateway is the system of record and every mutation is followed
// by a full reload; offline, mutations patch memory and rewrite the whole
// local snapshot.
type ComplaintService struct {
	gw       gateway.ComplaintGateway
	local    localstore.Store
	sessions *session.Store
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time

	fetches singleflight.Group
	// writeMu serializes mutations and reloads against each other.
	writeMu sync.Mutex

	mu         sync.RWMutex
	complaints []models.Complaint
	lastErr    error
	watchers   map[int]func([]models.Complaint)
	nextWatch  int
}

func NewComplaintService(
	gw gateway.ComplaintGateway,
	local localstore.Store,
	sessions *session.Store,
	notifier notify.Notifier,
	log zerolog.Logger,
) *ComplaintService {
	return &ComplaintService{
		gw:       gw,
		local:    local,
		sessions: sessions,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		watchers: make(map[int]func([]models.Complaint)),
	}
}

type NewComplaint struct {
	EmployeeID      string
	EmployeeName    string
	EmployeeQuarter string
	EmployeeArea    string
	EmployeeContact string
	Type            models.ComplaintType
	Description     string
}

type DepartmentAssignment struct {
	DepartmentID   string
	DepartmentName string
	// EstimatedDays is used when EstimatedDate is nil; zero means three days.
	EstimatedDays int
	EstimatedDate *time.Time
}

type AuthorityAssignment struct {
	Name           string
	Email          string
	ResolutionDate *time.Time
	Comments       string
}

// Fetch reloads the collection. Concurrent callers share one reload.
func (s *ComplaintService) Fetch(ctx context.Context) error {
	_, err, _ := s.fetches.Do(fetchKey, func() (any, error) {
		return nil, s.fetch(ctx)
	})
	return err
}

func (s *ComplaintService) fetch(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.sessions.Remote() {
		return s.loadLocal(ctx, nil)
	}

	list, err := s.gw.ListComplaints(ctx)
	if err != nil {
		s.setLastErr(err)
		if !errors.Is(err, gateway.ErrUnreachable) {
			s.log.Error().Err(err).Msg("fetch complaints rejected")
			return err
		}
		s.log.Warn().Err(err).Msg("gateway unreachable, using local complaints")
		s.notify(ctx, notify.LevelWarning, "Connection failed. Using offline mode.")
		s.sessions.SetMode(models.ConnectivityOffline)
		return s.loadLocal(ctx, err)
	}

	s.replace(list, nil)
	s.persist(ctx, list)
	s.log.Debug().Int("count", len(list)).Msg("loaded complaints from gateway")
	return nil
}

func (s *ComplaintService) loadLocal(ctx context.Context, cause error) error {
	var list []models.Complaint
	err := localstore.GetJSON(ctx, s.local, localstore.KeyComplaints, &list)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		list = SeedComplaints(s.now())
	case errors.Is(err, localstore.ErrCorrupt):
		s.log.Warn().Err(err).Msg("stored complaints unreadable, using seed data")
		list = SeedComplaints(s.now())
	case err != nil:
		s.setLastErr(err)
		return fmt.Errorf("load local complaints: %w", err)
	}

	s.replace(list, cause)
	s.log.Debug().Int("count", len(list)).Msg("loaded complaints from local store")
	return nil
}

// persist writes the full collection. Local write failures are logged only.
func (s *ComplaintService) persist(ctx context.Context, list []models.Complaint) {
	if err := localstore.SetJSON(ctx, s.local, localstore.KeyComplaints, list); err != nil {
		s.log.Error().Err(err).Msg("write local complaints failed")
	}
}

func (s *ComplaintService) replace(list []models.Complaint, lastErr error) {
	snapshot := make([]models.Complaint, len(list))
	for i := range list {
		snapshot[i] = list[i].Clone()
	}

	s.mu.Lock()
	s.complaints = snapshot
	s.lastErr = lastErr
	watchers := make([]func([]models.Complaint), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(s.Snapshot())
	}
}

// Watch registers fn to receive every replaced collection. fn runs on the
// goroutine that replaced the collection and must not call back into the
// service. The returned func unregisters it.
func (s *ComplaintService) Watch(fn func([]models.Complaint)) func() {
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a deep copy of the collection in stored order.
func (s *ComplaintService) Snapshot() []models.Complaint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Complaint, len(s.complaints))
	for i := range s.complaints {
		out[i] = s.complaints[i].Clone()
	}
	return out
}

func (s *ComplaintService) Get(id string) (models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.complaints {
		if s.complaints[i].ID == id {
			return s.complaints[i].Clone(), nil
		}
	}
	return models.Complaint{}, ErrComplaintNotFound
}

// LastError is the error recorded by the most recent reload, if any.
func (s *ComplaintService) LastError() error {
	return s.lastError()
}

func (s *ComplaintService) lastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *ComplaintService) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *ComplaintService) Create(ctx context.Context, in NewComplaint) (models.Complaint, error) {
	in.Description = strings.TrimSpace(in.Description)
	if !in.Type.Valid() || in.Description == "" || in.EmployeeID == "" {
		return models.Complaint{}, ErrInvalidInput
	}

	s.writeMu.Lock()
	current := s.Snapshot()
	existing := make([]string, len(current))
	for i := range current {
		existing[i] = current[i].ID
	}

	now := s.now()
	complaint := models.Complaint{
		ID:              ids.NextComplaint(existing),
		EmployeeID:      in.EmployeeID,
		EmployeeName:    in.EmployeeName,
		EmployeeQuarter: in.EmployeeQuarter,
		EmployeeArea:    in.EmployeeArea,
		EmployeeContact: in.EmployeeContact,
		Type:            in.Type,
		Description:     in.Description,
		Status:          models.StatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
		Comments:        []models.Comment{},
		StatusHistory: []models.StatusHistory{{
			ID:        ids.Prefixed("SH"),
			Status:    models.StatusNew,
			UpdatedBy: "System",
			CreatedAt: now,
		}},
	}

	if !s.sessions.Remote() {
		updated := append(current, complaint)
		s.replace(updated, nil)
		s.persist(ctx, updated)
		s.writeMu.Unlock()
		s.notify(ctx, notify.LevelSuccess, "Complaint submitted successfully (Offline mode)")
		return complaint.Clone(), nil
	}

	err := s.gw.InsertComplaint(ctx, gateway.ComplaintInsert{
		ID:              complaint.ID,
		EmployeeID:      complaint.EmployeeID,
		EmployeeName:    complaint.EmployeeName,
		EmployeeQuarter: complaint.EmployeeQuarter,
		EmployeeArea:    complaint.EmployeeArea,
		EmployeeContact: complaint.EmployeeContact,
		Type:            complaint.Type,
		Description:     complaint.Description,
		Status:          complaint.Status,
		CreatedAt:       complaint.CreatedAt,
	})
	if err == nil {
		err = s.gw.InsertStatusHistory(ctx, historyInsert(complaint.ID, complaint.StatusHistory[0]))
	}
	s.writeMu.Unlock()
	if err != nil {
		s.log.Error().Err(err).Str("complaint_id", complaint.ID).Msg("create complaint failed")
		s.notify(ctx, notify.LevelError, "Failed to submit complaint")
		return models.Complaint{}, err
	}

	s.refresh(ctx)
	s.notify(ctx, notify.LevelSuccess, "Complaint submitted successfully")
	if stored, err := s.Get(complaint.ID); err == nil {
		return stored, nil
	}
	return complaint, nil
}

func (s *ComplaintService) AssignToDepartment(ctx context.Context, id string, in DepartmentAssignment) error {
	in.DepartmentName = strings.TrimSpace(in.DepartmentName)
	if in.DepartmentName == "" {
		return ErrInvalidInput
	}
	if in.EstimatedDate == nil && (in.EstimatedDays < 0 || in.EstimatedDays > 30) {
		return ErrInvalidInput
	}

	actor := s.actor("Admin")
	note := "Assigned to " + in.DepartmentName

	return s.mutate(ctx, id, "Failed to assign complaint", "Complaint assigned to "+in.DepartmentName,
		func(c *models.Complaint, now time.Time) error {
			if !c.Status.CanTransitionTo(models.StatusAssigned) {
				return ErrInvalidTransition
			}
			estimate := in.EstimatedDate
			if estimate == nil {
				days := in.EstimatedDays
				if days == 0 {
					days = defaultEstimateDays
				}
				at := now.AddDate(0, 0, days)
				estimate = &at
			}
			assignedAt := now
			c.Status = models.StatusAssigned
			c.DepartmentID = in.DepartmentID
			c.DepartmentName = in.DepartmentName
			c.AssignedAt = &assignedAt
			c.EstimatedResolutionDate = estimate
			c.UpdatedAt = now
			c.StatusHistory = append(c.StatusHistory, actor.history(models.StatusAssigned, note, now))
			c.Comments = append(c.Comments, actor.comment(note, now))
			return nil
		},
		func(ctx context.Context, c models.Complaint) error {
			status := c.Status
			err := s.gw.UpdateComplaint(ctx, c.ID, gateway.ComplaintPatch{
				Status:                  &status,
				DepartmentID:            &c.DepartmentID,
				DepartmentName:          &c.DepartmentName,
				AssignedAt:              c.AssignedAt,
				EstimatedResolutionDate: c.EstimatedResolutionDate,
				UpdatedAt:               c.UpdatedAt,
			})
			if err != nil {
				return err
			}
			if err := s.gw.InsertStatusHistory(ctx, historyInsert(c.ID, lastHistory(c))); err != nil {
				return err
			}
			return s.gw.InsertComment(ctx, commentInsert(c.ID, c.Comments[len(c.Comments)-1]))
		},
	)
}

func (s *ComplaintService) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, note string) error {
	if !status.Valid() {
		return ErrInvalidInput
	}
	actor := s.actor("Unknown")
	note = strings.TrimSpace(note)

	return s.mutate(ctx, id, "Failed to update complaint status", "Status updated to "+strings.ReplaceAll(string(status), "_", " "),
		func(c *models.Complaint, now time.Time) error {
			if !c.Status.CanTransitionTo(status) {
				return ErrInvalidTransition
			}
			c.Status = status
			c.UpdatedAt = now
			if status == models.StatusCompleted {
				completed := now
				c.CompletedAt = &completed
			}
			c.StatusHistory = append(c.StatusHistory, actor.history(status, note, now))
			return nil
		},
		func(ctx context.Context, c models.Complaint) error {
			status := c.Status
			patch := gateway.ComplaintPatch{Status: &status, UpdatedAt: c.UpdatedAt}
			if status == models.StatusCompleted {
				patch.CompletedAt = c.CompletedAt
			}
			if err := s.gw.UpdateComplaint(ctx, c.ID, patch); err != nil {
				return err
			}
			return s.gw.InsertStatusHistory(ctx, historyInsert(c.ID, lastHistory(c)))
		},
	)
}

func (s *ComplaintService) AssignToAuthority(ctx context.Context, id string, in AuthorityAssignment) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Comments = strings.TrimSpace(in.Comments)
	if in.Name == "" || in.Email == "" {
		return ErrInvalidInput
	}

	actor := s.actor("Admin")
	note := "Assigned to higher authority: " + in.Name
	if in.Comments != "" {
		note += " - " + in.Comments
	}

	return s.mutate(ctx, id, "Failed to assign to higher authority", "Complaint assigned to "+in.Name,
		func(c *models.Complaint, now time.Time) error {
			if !c.Status.CanTransitionTo(models.StatusAuthorityAssigned) {
				return ErrInvalidTransition
			}
			escalatedAt := now
			c.Status = models.StatusAuthorityAssigned
			c.EscalatedToAuthority = fmt.Sprintf("%s (%s)", in.Name, in.Email)
			c.EscalatedAuthorityAt = &escalatedAt
			c.AuthorityResolutionDate = in.ResolutionDate
			c.AuthorityComments = in.Comments
			c.UpdatedAt = now
			c.StatusHistory = append(c.StatusHistory, actor.history(models.StatusAuthorityAssigned, note, now))
			return nil
		},
		func(ctx context.Context, c models.Complaint) error {
			status := c.Status
			patch := gateway.ComplaintPatch{
				Status:                  &status,
				EscalatedToAuthority:    &c.EscalatedToAuthority,
				EscalatedAuthorityAt:    c.EscalatedAuthorityAt,
				AuthorityResolutionDate: c.AuthorityResolutionDate,
				UpdatedAt:               c.UpdatedAt,
			}
			if c.AuthorityComments != "" {
				patch.AuthorityComments = &c.AuthorityComments
			}
			if err := s.gw.UpdateComplaint(ctx, c.ID, patch); err != nil {
				return err
			}
			return s.gw.InsertStatusHistory(ctx, historyInsert(c.ID, lastHistory(c)))
		},
	)
}

func (s *ComplaintService) AddComment(ctx context.Context, id, text string) error {
	user, _, ok := s.sessions.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrInvalidInput
	}
	author := actor{id: user.ID, name: user.Name, role: string(user.Role)}

	return s.mutate(ctx, id, "Failed to add comment", "Comment added",
		func(c *models.Complaint, now time.Time) error {
			c.Comments = append(c.Comments, author.comment(text, now))
			c.UpdatedAt = now
			return nil
		},
		func(ctx context.Context, c models.Complaint) error {
			return s.gw.InsertComment(ctx, commentInsert(c.ID, c.Comments[len(c.Comments)-1]))
		},
	)
}

// Escalate moves the complaint to escalated and records the reason both in
// the history and as a comment. A failed comment leaves the status change
// in place.
func (s *ComplaintService) Escalate(ctx context.Context, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrInvalidInput
	}
	// The follow-up comment needs an author; without one nothing is changed.
	if _, _, ok := s.sessions.Current(); !ok {
		return ErrNotAuthenticated
	}
	if err := s.UpdateStatus(ctx, id, models.StatusEscalated, reason); err != nil {
		return err
	}
	return s.AddComment(ctx, id, "Complaint escalated: "+reason)
}

// mutate applies change to a copy of complaint id. Offline the copy replaces
// the stored one and the collection is persisted; remotely the copy is
// written through remote and the collection reloaded.
func (s *ComplaintService) mutate(
	ctx context.Context,
	id string,
	failure, success string,
	change func(c *models.Complaint, now time.Time) error,
	remote func(ctx context.Context, c models.Complaint) error,
) error {
	s.writeMu.Lock()
	current := s.Snapshot()
	idx := -1
	for i := range current {
		if current[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.writeMu.Unlock()
		s.notify(ctx, notify.LevelError, failure)
		return ErrComplaintNotFound
	}

	updated := current[idx].Clone()
	if err := change(&updated, s.now()); err != nil {
		s.writeMu.Unlock()
		s.notify(ctx, notify.LevelError, failure)
		return err
	}

	if !s.sessions.Remote() {
		current[idx] = updated
		s.replace(current, nil)
		s.persist(ctx, current)
		s.writeMu.Unlock()
		s.notify(ctx, notify.LevelSuccess, success)
		return nil
	}

	err := remote(ctx, updated)
	s.writeMu.Unlock()
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrComplaintNotFound, err)
		}
		s.log.Error().Err(err).Str("complaint_id", id).Msg(failure)
		s.notify(ctx, notify.LevelError, failure)
		return err
	}

	s.refresh(ctx)
	s.notify(ctx, notify.LevelSuccess, success)
	return nil
}

// refresh reloads after a successful remote write. A reload already in
// flight may predate the write, so it is not joined. The write already
// happened, so a failed reload is logged rather than returned.
func (s *ComplaintService) refresh(ctx context.Context) {
	s.fetches.Forget(fetchKey)
	if err := s.Fetch(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reload after mutation failed")
	}
}

func (s *ComplaintService) notify(ctx context.Context, level notify.Level, msg string) {
	if s.notifier == nil {
		return
	}
	n := notify.Notification{Level: level, Message: msg, At: s.now()}
	if user, _, ok := s.sessions.Current(); ok {
		n.UserID = user.ID
	}
	s.notifier.Notify(ctx, n)
}

type actor struct {
	id   string
	name string
	role string
}

// actor is the signed-in user, or a placeholder named fallback.
func (s *ComplaintService) actor(fallback string) actor {
	user, _, ok := s.sessions.Current()
	if !ok {
		return actor{id: "system", name: fallback, role: string(models.UserRoleAdmin)}
	}
	return actor{id: user.ID, name: user.Name, role: string(user.Role)}
}

func (a actor) history(status models.ComplaintStatus, note string, now time.Time) models.StatusHistory {
	return models.StatusHistory{
		ID:        ids.Prefixed("SH"),
		Status:    status,
		UpdatedBy: a.name,
		Comments:  note,
		CreatedAt: now,
	}
}

func (a actor) comment(text string, now time.Time) models.Comment {
	return models.Comment{
		ID:        ids.Prefixed("CM"),
		UserID:    a.id,
		UserName:  a.name,
		UserRole:  a.role,
		Comment:   text,
		CreatedAt: now,
	}
}

func lastHistory(c models.Complaint) models.StatusHistory {
	return c.StatusHistory[len(c.StatusHistory)-1]
}

func historyInsert(complaintID string, h models.StatusHistory) gateway.StatusHistoryInsert {
	return gateway.StatusHistoryInsert{
		ID:          h.ID,
		ComplaintID: complaintID,
		Status:      h.Status,
		UpdatedBy:   h.UpdatedBy,
		Comments:    h.Comments,
		CreatedAt:   h.CreatedAt,
	}
}

func commentInsert(complaintID string, c models.Comment) gateway.CommentInsert {
	return gateway.CommentInsert{
		ID:          c.ID,
		ComplaintID: complaintID,
		UserID:      c.UserID,
		UserName:    c.UserName,
		UserRole:    c.UserRole,
		Comment:     c.Comment,
		CreatedAt:   c.CreatedAt,
	}
}
