package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/internal/notify"
	"github.com/bwise1/civic_dispatch/internal/store"
	"github.com/google/uuid"
)

type serviceFixture struct {
	svc       *Service
	store     *flakyStore
	publisher *recordingPublisher
	clock     *fixedClock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:     &flakyStore{MemoryStore: store.NewMemoryStore()},
		publisher: &recordingPublisher{},
		clock:     &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(f.store, NewKeyedMutex(), f.publisher, quietLogger(), Options{Clock: f.clock.Now})
	return f
}

func validInput(owner uuid.UUID) CreateReportInput {
	return CreateReportInput{
		Title:       "Deep pothole on MG Road",
		Description: "Two wheelers are swerving into traffic",
		Category:    model.CategoryPothole,
		Location:    model.Location{Longitude: 0.5, Latitude: 0.5},
		PhotoURL:    "https://res.cloudinary.com/demo/image/upload/pothole.jpg",
		OwnerID:     owner,
	}
}

func TestCreateReportRoutesAndNotifies(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	authority := uuid.New()
	if _, err := f.svc.RegisterRegion(ctx, authority, "Central Ward", square(0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	owner := uuid.New()

	res, err := f.svc.CreateReport(ctx, validInput(owner))
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if res.Duplicate {
		t.Fatal("first report flagged as duplicate")
	}

	r := res.Report
	if r.Status != model.StatusPending || r.Severity != model.DefaultSeverity || r.PriorityScore != 6 {
		t.Errorf("status=%s severity=%d priority=%d; want pending, 3, 6", r.Status, r.Severity, r.PriorityScore)
	}
	if r.AssignedAuthority == nil || *r.AssignedAuthority != authority {
		t.Errorf("AssignedAuthority = %v; want %s", r.AssignedAuthority, authority)
	}
	if len(r.History) != 1 || r.History[0].ChangedBy != owner || r.History[0].Status != model.StatusPending {
		t.Errorf("History = %+v", r.History)
	}
	if r.Version != 1 || !r.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("version=%d createdAt=%v", r.Version, r.CreatedAt)
	}

	stored, err := f.svc.GetReport(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.AssignedAuthority == nil || *stored.AssignedAuthority != authority {
		t.Error("stored report lost its assignment")
	}

	events := f.publisher.Events()
	if len(events) != 1 || len(events[0].Targets) != 1 {
		t.Fatalf("events = %+v; want one reportAssigned", events)
	}
	msg := events[0].Targets[0].Message
	if msg.Channel != notify.AuthorityChannel(authority) || msg.Event != notify.EventReportAssigned {
		t.Errorf("message = %s/%s", msg.Channel, msg.Event)
	}
}

func TestCreateReportUnassigned(t *testing.T) {
	f := newServiceFixture(t)
	res, err := f.svc.CreateReport(context.Background(), validInput(uuid.New()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.AssignedAuthority != nil {
		t.Error("report outside every region must stay unassigned")
	}
	if n := len(f.publisher.Events()); n != 0 {
		t.Errorf("published %d events for an unassigned report; want 0", n)
	}
}

func TestCreateReportDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateReport(ctx, validInput(uuid.New())); err != nil {
		t.Fatal(err)
	}
	in := validInput(uuid.New())
	in.Location.Latitude += 0.0002

	res, err := f.svc.CreateReport(ctx, in)
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("second report within 50 m was not flagged")
	}

	all, _ := f.svc.ListReports(ctx, model.ReportFilter{})
	if len(all) != 1 {
		t.Errorf("stored %d reports; want 1", len(all))
	}

	in.Category = model.CategoryGarbage
	res, err = f.svc.CreateReport(ctx, in)
	if err != nil || res.Duplicate {
		t.Errorf("different category: duplicate=%v err=%v; want stored", res.Duplicate, err)
	}
}

func TestCreateReportValidation(t *testing.T) {
	long := make([]rune, model.MaxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}

	testCases := []struct {
		name   string
		mutate func(*CreateReportInput)
		field  string
	}{
		{"blank title", func(in *CreateReportInput) { in.Title = "   " }, "title"},
		{"long title", func(in *CreateReportInput) { in.Title = string(long) }, "title"},
		{"missing description", func(in *CreateReportInput) { in.Description = "" }, "description"},
		{"unknown category", func(in *CreateReportInput) { in.Category = "graffiti" }, "category"},
		{"severity too high", func(in *CreateReportInput) { in.Severity = 6 }, "severity"},
		{"negative severity", func(in *CreateReportInput) { in.Severity = -1 }, "severity"},
		{"latitude out of range", func(in *CreateReportInput) { in.Location.Latitude = 91 }, "location"},
		{"no owner", func(in *CreateReportInput) { in.OwnerID = uuid.Nil }, "owner_id"},
		{"photo is not a url", func(in *CreateReportInput) { in.PhotoURL = "pothole.jpg" }, "photo_url"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture(t)
			in := validInput(uuid.New())
			tc.mutate(&in)

			_, err := f.svc.CreateReport(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v; want ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q; want %q", verr.Field, tc.field)
			}
			all, _ := f.store.ListReports(context.Background(), model.ReportFilter{})
			if len(all) != 0 {
				t.Error("invalid input was persisted")
			}
		})
	}
}

func TestCreateReportDependencyFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.store.failRadius = true

	_, err := f.svc.CreateReport(context.Background(), validInput(uuid.New()))
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("error = %v; want ErrDependencyUnavailable", err)
	}
	f.store.failRadius = false
	all, _ := f.store.ListReports(context.Background(), model.ReportFilter{})
	if len(all) != 0 {
		t.Error("report stored although the duplicate check failed")
	}
}

func TestVotingScenario(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateReport(ctx, validInput(uuid.New()))
	if err != nil {
		t.Fatal(err)
	}
	id := res.Report.ID
	a, b := uuid.New(), uuid.New()

	steps := []struct {
		voter    uuid.UUID
		value    int
		priority int
		votes    int
	}{
		{a, model.Upvote, 7, 1},
		{b, model.Upvote, 8, 2},
		{a, model.Upvote, 8, 2},
		{a, model.Downvote, 6, 0},
	}
	for i, step := range steps {
		f.clock.Advance(time.Minute)
		r, err := f.svc.Vote(ctx, id, step.voter, step.value)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if r.PriorityScore != step.priority || r.VoteCount != step.votes {
			t.Errorf("step %d: priority=%d votes=%d; want %d and %d", i, r.PriorityScore, r.VoteCount, step.priority, step.votes)
		}
		if !r.UpdatedAt.Equal(f.clock.Now()) {
			t.Errorf("step %d: UpdatedAt not refreshed", i)
		}
	}

	if _, err := f.svc.Vote(ctx, id, a, 5); err == nil {
		t.Error("expected a validation error for vote value 5")
	}
	if _, err := f.svc.Vote(ctx, uuid.New(), a, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("vote on missing report: error = %v; want ErrNotFound", err)
	}
}

func TestConcurrentVotesAreNotLost(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateReport(ctx, validInput(uuid.New()))
	if err != nil {
		t.Fatal(err)
	}

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Vote(ctx, res.Report.ID, uuid.New(), model.Upvote); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	r, err := f.svc.GetReport(ctx, res.Report.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.VoteCount != voters || r.PriorityScore != 6+voters || len(r.Votes) != voters {
		t.Errorf("votes=%d priority=%d voters=%d; want %d, %d, %d", r.VoteCount, r.PriorityScore, len(r.Votes), voters, 6+voters, voters)
	}
}

func TestVerifyLeavesPriorityAlone(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateReport(ctx, validInput(uuid.New()))
	if err != nil {
		t.Fatal(err)
	}

	r, err := f.svc.Verify(ctx, res.Report.ID, uuid.New(), model.Upvote)
	if err != nil {
		t.Fatal(err)
	}
	if r.VerificationScore != 1 || r.PriorityScore != res.Report.PriorityScore || r.Status != model.StatusPending {
		t.Errorf("verification=%d priority=%d status=%s", r.VerificationScore, r.PriorityScore, r.Status)
	}
}

func TestTransitionStatusPublishesAfterCommit(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	authority := uuid.New()
	if _, err := f.svc.RegisterRegion(ctx, authority, "Central Ward", square(0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	owner := uuid.New()
	res, err := f.svc.CreateReport(ctx, validInput(owner))
	if err != nil {
		t.Fatal(err)
	}
	before := len(f.publisher.Events())

	f.clock.Advance(time.Hour)
	r, err := f.svc.TransitionStatus(ctx, res.Report.ID, model.StatusVerified, authority, "confirmed on site")
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if r.Status != model.StatusVerified || len(r.History) != 2 || r.History[1].Note != "confirmed on site" {
		t.Errorf("status=%s history=%+v", r.Status, r.History)
	}

	events := f.publisher.Events()[before:]
	if len(events) != 1 {
		t.Fatalf("published %d events; want 1", len(events))
	}
	want := map[string]string{
		notify.UserChannel(owner):          notify.EventReportStatusChanged,
		notify.AuthorityChannel(authority): notify.EventWorkUpdate,
		notify.AdminChannel:                notify.EventReportUpdated,
	}
	if len(events[0].Targets) != len(want) {
		t.Fatalf("targets = %d; want %d", len(events[0].Targets), len(want))
	}
	for _, target := range events[0].Targets {
		if want[target.Message.Channel] != target.Message.Event {
			t.Errorf("channel %s got event %s", target.Message.Channel, target.Message.Event)
		}
	}

	_, err = f.svc.TransitionStatus(ctx, res.Report.ID, model.StatusResolved, authority, "")
	var terr *IllegalTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("verified -> resolved: error = %v; want IllegalTransitionError", err)
	}
	if n := len(f.publisher.Events()) - before; n != 1 {
		t.Errorf("illegal transition published an event")
	}
	stored, _ := f.svc.GetReport(ctx, res.Report.ID)
	if stored.Status != model.StatusVerified || len(stored.History) != 2 {
		t.Error("illegal transition modified the stored report")
	}
}

func TestMutateRetriesVersionConflicts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateReport(ctx, validInput(uuid.New()))
	if err != nil {
		t.Fatal(err)
	}

	f.store.conflicts = maxVersionRetries
	r, err := f.svc.Vote(ctx, res.Report.ID, uuid.New(), model.Upvote)
	if err != nil {
		t.Fatalf("Vote after %d conflicts: %v", maxVersionRetries, err)
	}
	if r.VoteCount != 1 {
		t.Errorf("VoteCount = %d; want 1", r.VoteCount)
	}

	f.store.conflicts = maxVersionRetries + 1
	_, err = f.svc.Vote(ctx, res.Report.ID, uuid.New(), model.Upvote)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("error = %v; want ErrVersionConflict", err)
	}
}

func TestListReportsValidation(t *testing.T) {
	f := newServiceFixture(t)
	testCases := []struct {
		name   string
		filter model.ReportFilter
	}{
		{"bad point", model.ReportFilter{Near: &model.Proximity{Point: model.Location{Latitude: 100}, RadiusMeters: 10}}},
		{"zero radius", model.ReportFilter{Near: &model.Proximity{}}},
		{"negative limit", model.ReportFilter{Limit: -1}},
		{"unknown status", model.ReportFilter{Statuses: []model.Status{"closed"}}},
		{"unknown category", model.ReportFilter{Categories: []model.Category{"graffiti"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.ListReports(context.Background(), tc.filter)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v; want ValidationError", err)
			}
		})
	}
}

func TestBuildCategoryHeatmap(t *testing.T) {
	reports := []model.Report{
		{Category: model.CategoryPothole, Location: model.Location{Longitude: 1, Latitude: 2}},
		{Category: model.CategoryGarbage, Location: model.Location{Longitude: 3, Latitude: 4}},
		{Category: model.CategoryPothole, Location: model.Location{Longitude: 5, Latitude: 6}},
	}
	got := BuildCategoryHeatmap(reports)
	if len(got) != 2 {
		t.Fatalf("groups = %d; want 2", len(got))
	}
	if got[0].Category != model.CategoryPothole || got[0].Count != 2 || got[0].Locations[1] != [2]float64{5, 6} {
		t.Errorf("pothole group = %+v", got[0])
	}
	if got[1].Count != 1 {
		t.Errorf("garbage group = %+v", got[1])
	}
}

func TestAnnouncements(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	authority := uuid.New()

	local, err := f.svc.CreateAnnouncement(ctx, AnnouncementInput{
		Title: "Road closure", Message: "MG Road closed Sunday", AuthorityID: authority, Area: square(0, 0, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Minute)
	global, err := f.svc.CreateAnnouncement(ctx, AnnouncementInput{Title: "Monsoon", Message: "Report waterlogging", AuthorityID: authority})
	if err != nil {
		t.Fatal(err)
	}
	if local.Global || !global.Global {
		t.Errorf("global flags: local=%v global=%v", local.Global, global.Global)
	}

	inside := model.Location{Longitude: 0.5, Latitude: 0.5}
	got, err := f.svc.ListAnnouncements(ctx, model.AnnouncementFilter{Point: &inside, IncludeGlobal: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != global.ID {
		t.Errorf("inside: got %d announcements, want 2 with the newest first", len(got))
	}

	outside := model.Location{Longitude: 5, Latitude: 5}
	got, _ = f.svc.ListAnnouncements(ctx, model.AnnouncementFilter{Point: &outside, IncludeGlobal: true})
	if len(got) != 1 || got[0].ID != global.ID {
		t.Errorf("outside: got %+v; want only the global announcement", got)
	}

	if _, err := f.svc.CreateAnnouncement(ctx, AnnouncementInput{Message: "no title"}); err == nil {
		t.Error("expected a validation error for a missing title")
	}
}

// stallingPublisher holds the first Publish call until release is closed.
type stallingPublisher struct {
	recordingPublisher
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *stallingPublisher) Publish(ctx context.Context, ev notify.Event) {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	p.recordingPublisher.Publish(ctx, ev)
}

func TestTransitionsPublishInCommitOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	publisher := &stallingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(mem, NewKeyedMutex(), publisher, quietLogger(), Options{})
	r := seedReport(mem, model.CategoryPothole, model.StatusPending, model.Location{Longitude: 0.5, Latitude: 0.5})
	actor := uuid.New()

	done := make(chan error, 2)
	go func() {
		_, err := svc.TransitionStatus(ctx, r.ID, model.StatusVerified, actor, "")
		done <- err
	}()
	<-publisher.entered

	go func() {
		_, err := svc.TransitionStatus(ctx, r.ID, model.StatusInProgress, actor, "")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	current, err := mem.GetReport(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current.Status != model.StatusVerified {
		t.Errorf("status = %s while the first notification is pending; want verified", current.Status)
	}

	close(publisher.release)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("TransitionStatus: %v", err)
		}
	}

	events := publisher.Events()
	if len(events) != 2 {
		t.Fatalf("published %d events; want 2", len(events))
	}
	if events[0].NewStatus != model.StatusVerified || events[1].NewStatus != model.StatusInProgress {
		t.Errorf("publish order = [%s %s]; want [verified in_progress]", events[0].NewStatus, events[1].NewStatus)
	}
}

func TestAssignReport(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateReport(ctx, validInput(uuid.New()))
	if err != nil {
		t.Fatal(err)
	}
	id := res.Report.ID

	rerouted, err := f.svc.AssignReport(ctx, id, nil)
	if err != nil {
		t.Fatalf("AssignReport without regions: %v", err)
	}
	if rerouted.AssignedAuthority != nil || len(f.publisher.Events()) != 0 {
		t.Error("report outside every region was assigned or announced")
	}

	ward := uuid.New()
	if _, err := f.svc.RegisterRegion(ctx, ward, "Central Ward", square(0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	rerouted, err = f.svc.AssignReport(ctx, id, nil)
	if err != nil {
		t.Fatalf("AssignReport after region approval: %v", err)
	}
	if rerouted.AssignedAuthority == nil || *rerouted.AssignedAuthority != ward {
		t.Fatalf("AssignedAuthority = %v; want %s", rerouted.AssignedAuthority, ward)
	}

	operator := uuid.New()
	manual, err := f.svc.AssignReport(ctx, id, &operator)
	if err != nil {
		t.Fatalf("manual AssignReport: %v", err)
	}
	stored, _ := f.svc.GetReport(ctx, id)
	if stored.AssignedAuthority == nil || *stored.AssignedAuthority != operator || stored.Version != manual.Version {
		t.Errorf("stored assignment = %v (version %d); want %s", stored.AssignedAuthority, stored.Version, operator)
	}

	events := f.publisher.Events()
	if len(events) != 2 {
		t.Fatalf("published %d events; want 2", len(events))
	}
	for i, want := range []uuid.UUID{ward, operator} {
		msg := events[i].Targets[0].Message
		if msg.Channel != notify.AuthorityChannel(want) || msg.Event != notify.EventReportAssigned {
			t.Errorf("event %d = %s/%s; want %s/%s", i, msg.Channel, msg.Event, notify.AuthorityChannel(want), notify.EventReportAssigned)
		}
	}
}

func TestAssignReportErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AssignReport(ctx, uuid.New(), nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing report: error = %v; want ErrNotFound", err)
	}

	res, err := f.svc.CreateReport(ctx, validInput(uuid.New()))
	if err != nil {
		t.Fatal(err)
	}
	nilID := uuid.Nil
	var verr *ValidationError
	if _, err := f.svc.AssignReport(ctx, res.Report.ID, &nilID); !errors.As(err, &verr) {
		t.Errorf("empty authority: error = %v; want ValidationError", err)
	}

	f.store.failRegions = true
	if _, err := f.svc.AssignReport(ctx, res.Report.ID, nil); !errors.Is(err, ErrDependencyUnavailable) {
		t.Errorf("region lookup failure: error = %v; want ErrDependencyUnavailable", err)
	}
	if n := len(f.publisher.Events()); n != 0 {
		t.Errorf("published %d events for failed assignments; want 0", n)
	}
}

type countingUploader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *countingUploader) UploadImage(_ context.Context, _ string, folder string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return "https://res.cloudinary.com/demo/image/upload/" + folder + "/photo.jpg", nil
}

func TestCreateReportUploadsPhotoOnlyWhenStored(t *testing.T) {
	ctx := context.Background()
	const dataURI = "data:image/png;base64,iVBORw0KGgo="

	newService := func(uploader PhotoUploader) *Service {
		return NewService(store.NewMemoryStore(), NewKeyedMutex(), &recordingPublisher{}, quietLogger(), Options{Photos: uploader})
	}

	t.Run("stored", func(t *testing.T) {
		uploader := &countingUploader{}
		svc := newService(uploader)
		in := validInput(uuid.New())
		in.PhotoURL = dataURI

		res, err := svc.CreateReport(ctx, in)
		if err != nil {
			t.Fatal(err)
		}
		if uploader.calls != 1 || res.Report.PhotoURL != "https://res.cloudinary.com/demo/image/upload/reports/photo.jpg" {
			t.Errorf("calls=%d photo=%q", uploader.calls, res.Report.PhotoURL)
		}
	})

	t.Run("duplicate and invalid skip upload", func(t *testing.T) {
		uploader := &countingUploader{}
		svc := newService(uploader)
		if _, err := svc.CreateReport(ctx, validInput(uuid.New())); err != nil {
			t.Fatal(err)
		}

		dup := validInput(uuid.New())
		dup.PhotoURL = dataURI
		res, err := svc.CreateReport(ctx, dup)
		if err != nil || !res.Duplicate {
			t.Fatalf("duplicate=%v err=%v", res.Duplicate, err)
		}

		bad := validInput(uuid.New())
		bad.PhotoURL = dataURI
		bad.Title = ""
		if _, err := svc.CreateReport(ctx, bad); err == nil {
			t.Fatal("blank title accepted")
		}
		if uploader.calls != 0 {
			t.Errorf("uploaded %d photos for rejected reports; want 0", uploader.calls)
		}
	})

	t.Run("uploads disabled", func(t *testing.T) {
		svc := newService(nil)
		in := validInput(uuid.New())
		in.PhotoURL = dataURI
		var verr *ValidationError
		if _, err := svc.CreateReport(ctx, in); !errors.As(err, &verr) || verr.Field != "photo_url" {
			t.Errorf("error = %v; want photo_url ValidationError", err)
		}
	})

	t.Run("upload failure stores nothing", func(t *testing.T) {
		mem := store.NewMemoryStore()
		svc := NewService(mem, NewKeyedMutex(), &recordingPublisher{}, quietLogger(), Options{Photos: &countingUploader{err: errStoreDown}})
		in := validInput(uuid.New())
		in.PhotoURL = dataURI
		if _, err := svc.CreateReport(ctx, in); !errors.Is(err, ErrDependencyUnavailable) {
			t.Errorf("error = %v; want ErrDependencyUnavailable", err)
		}
		if all, _ := mem.ListReports(ctx, model.ReportFilter{}); len(all) != 0 {
			t.Errorf("stored %d reports after a failed upload", len(all))
		}
	})
}
