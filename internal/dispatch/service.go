// Package dispatch owns the report lifecycle: creation with duplicate
// suppression and routing, voting, verification and status transitions.
package dispatch

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/internal/notify"
	"github.com/bwise1/civic_dispatch/internal/store"
	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxVersionRetries = 3

var tracer = otel.Tracer("github.com/bwise1/civic_dispatch/internal/dispatch")

type Clock func() time.Time

// PhotoUploader stores an inline photo and returns its public URL.
type PhotoUploader interface {
	UploadImage(ctx context.Context, file string, folder string) (string, error)
}

type Options struct {
	DuplicateRadiusMeters float64
	Clock                 Clock
	Photos                PhotoUploader
}

type Service struct {
	store    store.Store
	dedup    *DuplicateDetector
	router   *Router
	locker   Locker
	notifier notify.Publisher
	photos   PhotoUploader
	now      Clock
	logger   logrus.FieldLogger
}

func NewService(s store.Store, locker Locker, notifier notify.Publisher, logger logrus.FieldLogger, opts Options) *Service {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Service{
		store:    s,
		dedup:    NewDuplicateDetector(s, opts.DuplicateRadiusMeters),
		router:   NewRouter(s),
		locker:   locker,
		notifier: notifier,
		photos:   opts.Photos,
		now:      func() time.Time { return now().UTC() },
		logger:   logger.WithField("module", "dispatch"),
	}
}

type CreateReportInput struct {
	Title       string
	Description string
	Category    model.Category
	Severity    int
	Location    model.Location
	PhotoURL    string
	OwnerID     uuid.UUID
}

// CreateResult is either a stored report or a duplicate rejection. A
// duplicate is a business outcome, so it is not returned as an error.
type CreateResult struct {
	Report    model.Report
	Duplicate bool
}

func (in *CreateReportInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return invalid("title", "is required")
	case utf8.RuneCountInString(in.Title) > model.MaxTitleLength:
		return invalid("title", "must be at most 100 characters")
	case strings.TrimSpace(in.Description) == "":
		return invalid("description", "is required")
	case !in.Category.Valid():
		return invalid("category", "must be one of pothole, garbage, waterlogging, streetlight, other")
	case in.OwnerID == uuid.Nil:
		return invalid("owner_id", "is required")
	case !util.IsURL(in.PhotoURL) && !util.IsDataURI(in.PhotoURL):
		return invalid("photo_url", "must be a URL or a base64 data URI")
	}
	if in.Severity == 0 {
		in.Severity = model.DefaultSeverity
	}
	if in.Severity < model.MinSeverity || in.Severity > model.MaxSeverity {
		return invalid("severity", "must be between 1 and 5")
	}
	if err := in.Location.Validate(); err != nil {
		return invalid("location", err.Error())
	}
	return nil
}

// CreateReport checks for a nearby duplicate, routes the report to its
// authority and persists it in a single write.
func (s *Service) CreateReport(ctx context.Context, in CreateReportInput) (result CreateResult, err error) {
	ctx, span := tracer.Start(ctx, "dispatch.CreateReport", trace.WithAttributes(
		attribute.String("category", string(in.Category)),
	))
	defer func() { endSpan(span, err) }()

	if err := in.validate(); err != nil {
		return CreateResult{}, err
	}

	duplicate, err := s.dedup.IsDuplicate(ctx, in.Location, in.Category)
	if err != nil {
		return CreateResult{}, err
	}
	if duplicate {
		span.SetAttributes(attribute.Bool("duplicate", true))
		return CreateResult{Duplicate: true}, nil
	}

	now := s.now()
	report := model.Report{
		ID:            uuid.New(),
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Severity:      in.Severity,
		Location:      in.Location,
		PhotoURL:      in.PhotoURL,
		Status:        model.StatusPending,
		Votes:         map[uuid.UUID]int{},
		Verifications: map[uuid.UUID]int{},
		OwnerID:       in.OwnerID,
		History: []model.HistoryEntry{{
			Status:    model.StatusPending,
			ChangedBy: in.OwnerID,
			Note:      "Report created",
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	report.PriorityScore = RecomputePriority(report)

	if _, err := s.router.Assign(ctx, &report); err != nil {
		return CreateResult{}, err
	}

	if util.IsDataURI(report.PhotoURL) {
		url, err := s.uploadPhoto(ctx, report.PhotoURL)
		if err != nil {
			return CreateResult{}, err
		}
		report.PhotoURL = url
	}

	if err := s.store.CreateReport(ctx, &report); err != nil {
		return CreateResult{}, storeErr(err, "create report")
	}

	if report.AssignedAuthority != nil {
		s.notifier.Publish(ctx, notify.Assigned(report))
	} else {
		s.logger.WithField("report_id", report.ID).Info("no authority region contains report, left unassigned")
	}

	return CreateResult{Report: report}, nil
}

// uploadPhoto runs after validation, the duplicate check and routing, so
// rejected and duplicate submissions never leave an asset behind.
func (s *Service) uploadPhoto(ctx context.Context, dataURI string) (string, error) {
	if s.photos == nil {
		return "", invalid("photo_url", "photo uploads are not available, send a photo URL instead")
	}
	url, err := s.photos.UploadImage(ctx, dataURI, storage.ReportsFolder)
	if errors.Is(err, storage.ErrUploadsDisabled) {
		return "", invalid("photo_url", "photo uploads are not available, send a photo URL instead")
	}
	if err != nil {
		return "", &unavailableError{op: "photo upload", cause: err}
	}
	return url, nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (model.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return model.Report{}, storeErr(err, "get report")
	}
	return r, nil
}

// ListReports applies filter as given; role policy is the caller's concern.
func (s *Service) ListReports(ctx context.Context, filter model.ReportFilter) (reports []model.Report, err error) {
	ctx, span := tracer.Start(ctx, "dispatch.ListReports")
	defer func() { endSpan(span, err) }()

	if filter.Near != nil {
		if err := filter.Near.Point.Validate(); err != nil {
			return nil, invalid("near", err.Error())
		}
		if filter.Near.RadiusMeters <= 0 {
			return nil, invalid("radius", "must be positive")
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, invalid("limit", "limit and offset must not be negative")
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, invalid("status", "unknown status "+string(st))
		}
	}
	for _, c := range filter.Categories {
		if !c.Valid() {
			return nil, invalid("category", "unknown category "+string(c))
		}
	}

	reports, err = s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "list reports")
	}
	return reports, nil
}

// TransitionStatus moves a report along the lifecycle and fans the change
// out once the update is committed.
func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, requested model.Status, actorID uuid.UUID, note string) (report model.Report, err error) {
	ctx, span := tracer.Start(ctx, "dispatch.TransitionStatus", trace.WithAttributes(
		attribute.String("report_id", id.String()),
		attribute.String("requested_status", string(requested)),
	))
	defer func() { endSpan(span, err) }()

	report, err = s.mutate(ctx, id, "transition status", func(r *model.Report) error {
		return Transition(r, requested, actorID, note, s.now())
	}, func(committed model.Report) {
		s.notifier.Publish(ctx, notify.StatusChanged(committed))
	})
	if err != nil {
		return model.Report{}, err
	}
	return report, nil
}

// AssignReport sets the owning authority of a stored report. A nil
// authorityID re-routes the report from its location; it stays unassigned
// when no region contains it.
func (s *Service) AssignReport(ctx context.Context, id uuid.UUID, authorityID *uuid.UUID) (report model.Report, err error) {
	ctx, span := tracer.Start(ctx, "dispatch.AssignReport", trace.WithAttributes(
		attribute.String("report_id", id.String()),
	))
	defer func() { endSpan(span, err) }()

	if authorityID != nil && *authorityID == uuid.Nil {
		return model.Report{}, invalid("authority_id", "must not be empty")
	}

	return s.mutate(ctx, id, "assign report", func(r *model.Report) error {
		if authorityID != nil {
			authority := *authorityID
			r.AssignedAuthority = &authority
		} else if _, err := s.router.Assign(ctx, r); err != nil {
			return err
		}
		r.UpdatedAt = s.now()
		return nil
	}, func(committed model.Report) {
		if committed.AssignedAuthority == nil {
			s.logger.WithField("report_id", committed.ID).Info("no authority region contains report, left unassigned")
			return
		}
		s.notifier.Publish(ctx, notify.Assigned(committed))
	})
}

func (s *Service) Vote(ctx context.Context, id, voterID uuid.UUID, value int) (report model.Report, err error) {
	ctx, span := tracer.Start(ctx, "dispatch.Vote", trace.WithAttributes(
		attribute.String("report_id", id.String()),
		attribute.Int("value", value),
	))
	defer func() { endSpan(span, err) }()

	if !model.ValidVoteValue(value) {
		return model.Report{}, invalid("value", "vote must be +1 or -1")
	}
	return s.mutate(ctx, id, "vote", func(r *model.Report) error {
		if err := ApplyVote(r, voterID, value); err != nil {
			return err
		}
		r.UpdatedAt = s.now()
		return nil
	}, nil)
}

func (s *Service) Verify(ctx context.Context, id, verifierID uuid.UUID, value int) (report model.Report, err error) {
	ctx, span := tracer.Start(ctx, "dispatch.Verify", trace.WithAttributes(
		attribute.String("report_id", id.String()),
		attribute.Int("value", value),
	))
	defer func() { endSpan(span, err) }()

	if !model.ValidVoteValue(value) {
		return model.Report{}, invalid("value", "verification must be +1 or -1")
	}
	return s.mutate(ctx, id, "verify", func(r *model.Report) error {
		if err := ApplyVerification(r, verifierID, value); err != nil {
			return err
		}
		r.UpdatedAt = s.now()
		return nil
	}, nil)
}

// mutate runs fn against the latest stored copy under the report lock and
// persists the result. A version conflict from another writer re-reads and
// reapplies fn. onCommit, when set, runs after the write and before the lock
// is released, so notifications for one report leave in commit order.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, fn func(r *model.Report) error, onCommit func(model.Report)) (model.Report, error) {
	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return model.Report{}, err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		current, err := s.store.GetReport(ctx, id)
		if err != nil {
			return model.Report{}, storeErr(err, op)
		}
		if err := fn(&current); err != nil {
			return model.Report{}, err
		}
		err = s.store.UpdateReport(ctx, &current)
		if err == nil {
			if onCommit != nil {
				onCommit(current)
			}
			return current, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= maxVersionRetries {
			return model.Report{}, storeErr(err, op)
		}
		s.logger.WithFields(logrus.Fields{"report_id": id, "op": op, "attempt": attempt + 1}).Debug("version conflict, retrying")
	}
}

// Heatmap groups every report's location by category.
func (s *Service) Heatmap(ctx context.Context) ([]model.CategoryHeatmap, error) {
	reports, err := s.store.ListReports(ctx, model.ReportFilter{})
	if err != nil {
		return nil, storeErr(err, "heatmap")
	}
	return BuildCategoryHeatmap(reports), nil
}

func BuildCategoryHeatmap(reports []model.Report) []model.CategoryHeatmap {
	index := make(map[model.Category]int)
	out := make([]model.CategoryHeatmap, 0)
	for _, r := range reports {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, model.CategoryHeatmap{Category: r.Category, Locations: [][2]float64{}})
		}
		out[i].Count++
		out[i].Locations = append(out[i].Locations, [2]float64{r.Location.Longitude, r.Location.Latitude})
	}
	return out
}

// RegisterRegion is the hook the external approval workflow calls once an
// authority is approved.
func (s *Service) RegisterRegion(ctx context.Context, authorityID uuid.UUID, name string, area model.Polygon) (model.AuthorityRegion, error) {
	if authorityID == uuid.Nil {
		return model.AuthorityRegion{}, invalid("authority_id", "is required")
	}
	if strings.TrimSpace(name) == "" {
		return model.AuthorityRegion{}, invalid("name", "is required")
	}
	if err := area.Validate(); err != nil {
		return model.AuthorityRegion{}, invalid("area", err.Error())
	}

	region := model.AuthorityRegion{
		ID:          uuid.New(),
		AuthorityID: authorityID,
		Name:        strings.TrimSpace(name),
		Area:        area,
		ApprovedAt:  s.now(),
	}
	if err := s.store.CreateRegion(ctx, &region); err != nil {
		return model.AuthorityRegion{}, storeErr(err, "register region")
	}
	return region, nil
}

// ListRegions returns every region in approval order.
func (s *Service) ListRegions(ctx context.Context) ([]model.AuthorityRegion, error) {
	regions, err := s.store.ListRegions(ctx)
	if err != nil {
		return nil, storeErr(err, "list regions")
	}
	return regions, nil
}

type AnnouncementInput struct {
	Title       string
	Message     string
	AuthorityID uuid.UUID
	Area        model.Polygon
}

// CreateAnnouncement stores an announcement. Without an area it is global.
func (s *Service) CreateAnnouncement(ctx context.Context, in AnnouncementInput) (model.Announcement, error) {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return model.Announcement{}, invalid("title", "is required")
	case strings.TrimSpace(in.Message) == "":
		return model.Announcement{}, invalid("message", "is required")
	}
	if len(in.Area) > 0 {
		if err := in.Area.Validate(); err != nil {
			return model.Announcement{}, invalid("area", err.Error())
		}
	}

	a := model.Announcement{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(in.Title),
		Message:     in.Message,
		AuthorityID: in.AuthorityID,
		Area:        in.Area,
		Global:      len(in.Area) == 0,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateAnnouncement(ctx, &a); err != nil {
		return model.Announcement{}, storeErr(err, "create announcement")
	}
	return a, nil
}

func (s *Service) ListAnnouncements(ctx context.Context, filter model.AnnouncementFilter) ([]model.Announcement, error) {
	if filter.Point != nil {
		if err := filter.Point.Validate(); err != nil {
			return nil, invalid("point", err.Error())
		}
	}
	out, err := s.store.ListAnnouncements(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "list announcements")
	}
	return out, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
