package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/reconcile"
	"hostel-admissions/internal/store/memory"
)

const guardianMobile = "9876543210"

var errDown = errors.New("connection refused")

type downSource struct{}

func (downSource) ParentsByMobile(context.Context, string) ([]models.User, error) { return nil, errDown }
func (downSource) StudentsByIDs(context.Context, []string) ([]models.Student, error) {
	return nil, errDown
}
func (downSource) StudentsByGuardianMobile(context.Context, string) ([]models.Student, error) {
	return nil, errDown
}
func (downSource) ApplicationsByGuardianMobile(context.Context, string) ([]models.Application, error) {
	return nil, errDown
}
func (downSource) ActiveAllocations(context.Context, []string, []string) ([]models.Allocation, error) {
	return nil, errDown
}
func (downSource) RoomsByIDs(context.Context, []string) ([]models.Room, error) { return nil, errDown }

// residentsDown serves linked students but fails the guardian-contact scan.
type residentsDown struct{ *memory.Store }

func (residentsDown) StudentsByGuardianMobile(context.Context, string) ([]models.Student, error) {
	return nil, errDown
}

type mapCache struct {
	mu    sync.Mutex
	views map[string]*reconcile.GuardianView
	gets  int
}

func (c *mapCache) Get(_ context.Context, key string) (*reconcile.GuardianView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.views[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, view *reconcile.GuardianView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[key] = view
	return nil
}

func sourcesOf(store *memory.Store) reconcile.Sources {
	return reconcile.Sources{Users: store, Students: store, Applications: store, Allocations: store}
}

func newEngine(t *testing.T, src reconcile.Sources, opts ...reconcile.Option) *reconcile.Engine {
	return reconcile.NewEngine(src, logger.NewTestLogger(t), opts...)
}

func application(id, name string, status models.ApplicationStatus) *models.Application {
	return &models.Application{
		ID:             id,
		TrackingNumber: "HST-2026-" + id,
		ApplicantName:  name,
		Vertical:       models.VerticalBoysHostel,
		Status:         status,
		FatherMobile:   guardianMobile,
		CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestReconcile_InternationalFormatMatchesApplication(t *testing.T) {
	store := memory.New()
	store.PutApplication(application("APP-1", "Ravi Kumar", models.StatusSubmitted))

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), "+91 98765 43210")
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)

	ward, ok := view.Single()
	require.True(t, ok)
	assert.Equal(t, "APP-1", ward.ID)
	assert.Equal(t, "HST-2026-APP-1", ward.TrackingNumber)
	assert.Equal(t, models.DerivedStatus(models.StatusSubmitted), ward.Status)
	assert.Equal(t, models.SourceApplication, ward.Source)
	assert.Equal(t, "Boys Hostel", ward.VerticalLabel)
	assert.Empty(t, view.Degraded)
}

func TestReconcile_LinkedAccountWinsOverSameNameApplication(t *testing.T) {
	store := memory.New()
	store.PutUser(models.User{ID: "usr-p", Role: models.RoleParent, FullName: "Mahesh Kumar",
		Mobile: "+91-98765-43210", LinkedStudentIDs: []string{"stu-1"}})
	store.PutStudent(models.Student{ID: "stu-1", UserID: "usr-1", FullName: "Ravi Kumar",
		Vertical: models.VerticalBoysHostel})
	store.PutApplication(application("APP-1", "  ravi  KUMAR ", models.StatusForwarded))

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)
	assert.Equal(t, "stu-1", view.Wards[0].ID)
	assert.Equal(t, models.SourceLinkedAccount, view.Wards[0].Source)
	assert.Equal(t, models.DerivedActive, view.Wards[0].Status)
}

func TestReconcile_ApprovedApplicationRepresentedByResident(t *testing.T) {
	store := memory.New()
	app := application("APP-2", "Sita Devi", models.StatusApproved)
	app.Vertical = models.VerticalGirlsHostel
	app.ResidentID = "stu-9"
	store.PutApplication(app)
	store.PutStudent(models.Student{ID: "stu-9", ApplicationID: "APP-2", FullName: "Sita D.",
		Vertical: "girls", MotherMobile: "98765 43210"})
	store.PutRoom(models.Room{ID: "room-1", Number: "101"})
	store.PutAllocation(models.Allocation{ID: "al-1", StudentID: "stu-9", RoomID: "room-1", Active: true})

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)

	ward := view.Wards[0]
	assert.Equal(t, "stu-9", ward.ID)
	assert.Equal(t, models.SourceResident, ward.Source)
	assert.Equal(t, models.DerivedCheckedIn, ward.Status)
	assert.Equal(t, "Room 101", ward.Room)
	assert.Equal(t, models.VerticalGirlsHostel, ward.Vertical)
	assert.Equal(t, "Girls Hostel", ward.VerticalLabel)
}

func TestReconcile_ResidentNameSuppressesApplication(t *testing.T) {
	store := memory.New()
	store.PutApplication(application("APP-3", "Arjun Mehta", models.StatusApproved))
	store.PutStudent(models.Student{ID: "stu-3", FullName: "arjun mehta", FatherMobile: guardianMobile})

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)
	assert.Equal(t, "stu-3", view.Wards[0].ID)
}

func TestReconcile_AllocatedApplicationIsCheckedIn(t *testing.T) {
	store := memory.New()
	store.PutApplication(application("APP-4", "Kiran Rao", models.StatusApproved))
	store.PutRoom(models.Room{ID: "room-12", Number: "12"})
	store.PutAllocation(models.Allocation{ID: "al-4", ApplicationID: "APP-4", RoomID: "room-12", Active: true})
	store.PutAllocation(models.Allocation{ID: "al-old", ApplicationID: "APP-4", RoomID: "room-99", Active: false})

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)
	assert.Equal(t, models.DerivedCheckedIn, view.Wards[0].Status)
	assert.Equal(t, "Room 12", view.Wards[0].Room)
}

func TestReconcile_LinkedByUserIDDedupsResident(t *testing.T) {
	store := memory.New()
	store.PutUser(models.User{ID: "usr-p", Role: models.RoleParent, Mobile: guardianMobile,
		LinkedStudentIDs: []string{"usr-5", "usr-5"}})
	store.PutStudent(models.Student{ID: "stu-5", UserID: "usr-5", FullName: "Meera Joshi",
		GuardianMobile: guardianMobile})
	store.PutStudent(models.Student{ID: "stu-6", FullName: "Neel Joshi", FatherMobile: "+919876543210"})

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 2)
	assert.Equal(t, "stu-5", view.Wards[0].ID)
	assert.Equal(t, models.SourceLinkedAccount, view.Wards[0].Source)
	assert.Equal(t, "stu-6", view.Wards[1].ID)
	assert.Equal(t, models.SourceResident, view.Wards[1].Source)

	_, single := view.Single()
	assert.False(t, single)
}

func TestReconcile_OrderIsLinkedThenApplicationsThenResidents(t *testing.T) {
	store := memory.New()
	store.PutUser(models.User{ID: "usr-p", Role: models.RoleParent, Mobile: guardianMobile,
		LinkedStudentIDs: []string{"stu-b", "stu-a"}})
	store.PutStudent(models.Student{ID: "stu-a", FullName: "Anu"})
	store.PutStudent(models.Student{ID: "stu-b", FullName: "Bala"})
	store.PutStudent(models.Student{ID: "stu-c", FullName: "Chitra", MotherMobile: guardianMobile})
	store.PutApplication(application("APP-9", "Dev", models.StatusReview))

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)

	var ids []string
	for _, w := range view.Wards {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []string{"stu-b", "stu-a", "APP-9", "stu-c"}, ids)
}

func TestReconcile_NonParentAccountsAreIgnored(t *testing.T) {
	store := memory.New()
	store.PutUser(models.User{ID: "usr-s", Role: models.RoleSuperintendent, Mobile: guardianMobile,
		LinkedStudentIDs: []string{"stu-1"}})
	store.PutStudent(models.Student{ID: "stu-1", FullName: "Ravi"})

	_, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestReconcile_EmptyAndMissingContact(t *testing.T) {
	engine := newEngine(t, sourcesOf(memory.New()))

	_, err := engine.Reconcile(context.Background(), " + - ")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMissingField))

	_, err = engine.Reconcile(context.Background(), "9000000000")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestReconcile_SourceFailureIsNonFatal(t *testing.T) {
	store := memory.New()
	store.PutStudent(models.Student{ID: "stu-1", FullName: "Ravi", FatherMobile: guardianMobile})
	src := sourcesOf(store)
	src.Applications = downSource{}

	cache := &mapCache{views: map[string]*reconcile.GuardianView{}}
	view, err := newEngine(t, src, reconcile.WithCache(cache)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)
	assert.Equal(t, []string{reconcile.SourceApplications}, view.Degraded)
	assert.Empty(t, cache.views, "degraded views are not cached")
}

func TestReconcile_ResidentScanFailureKeepsLinkedWards(t *testing.T) {
	store := memory.New()
	store.PutUser(models.User{ID: "usr-p", Role: models.RoleParent, Mobile: guardianMobile,
		LinkedStudentIDs: []string{"stu-1"}})
	store.PutStudent(models.Student{ID: "stu-1", FullName: "Ravi"})
	src := sourcesOf(store)
	src.Students = residentsDown{store}

	view, err := newEngine(t, src).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)
	assert.Equal(t, []string{reconcile.SourceResidents}, view.Degraded)
}

func TestReconcile_AllocationFailureDropsRoomsOnly(t *testing.T) {
	store := memory.New()
	store.PutApplication(application("APP-4", "Kiran Rao", models.StatusApproved))
	src := sourcesOf(store)
	src.Allocations = downSource{}

	view, err := newEngine(t, src).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)
	require.Len(t, view.Wards, 1)
	assert.Equal(t, models.DerivedStatus(models.StatusApproved), view.Wards[0].Status)
	assert.Empty(t, view.Wards[0].Room)
	assert.Equal(t, []string{reconcile.SourceAllocations}, view.Degraded)
}

func TestReconcile_TotalOutageIsUpstreamUnavailable(t *testing.T) {
	down := downSource{}
	src := reconcile.Sources{Users: down, Students: down, Applications: down, Allocations: down}

	_, err := newEngine(t, src).Reconcile(context.Background(), guardianMobile)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpstreamUnavailable))
	assert.ErrorIs(t, err, errDown)
}

func TestReconcile_CacheHitSkipsSources(t *testing.T) {
	cached := &reconcile.GuardianView{Contact: guardianMobile, Wards: []models.WardSummary{{ID: "stu-x", Name: "Cached"}}}
	cache := &mapCache{views: map[string]*reconcile.GuardianView{guardianMobile: cached}}
	down := downSource{}
	src := reconcile.Sources{Users: down, Students: down, Applications: down, Allocations: down}

	view, err := newEngine(t, src, reconcile.WithCache(cache)).Reconcile(context.Background(), "+91 98765-43210")
	require.NoError(t, err)
	assert.Same(t, cached, view)
}

func TestReconcile_CompleteViewIsCached(t *testing.T) {
	store := memory.New()
	store.PutApplication(application("APP-1", "Ravi Kumar", models.StatusSubmitted))
	cache := &mapCache{views: map[string]*reconcile.GuardianView{}}

	_, err := newEngine(t, sourcesOf(store), reconcile.WithCache(cache)).Reconcile(context.Background(), "098765 43210")
	require.NoError(t, err)
	require.Contains(t, cache.views, guardianMobile)
	assert.Len(t, cache.views[guardianMobile].Wards, 1)
}

func TestReconcile_WardsDoNotExposeContacts(t *testing.T) {
	store := memory.New()
	app := application("APP-1", "Ravi Kumar", models.StatusSubmitted)
	app.ApplicantEmail = "ravi@example.org"
	store.PutApplication(app)
	store.PutStudent(models.Student{ID: "stu-2", FullName: "Asha", FatherMobile: guardianMobile})

	view, err := newEngine(t, sourcesOf(store)).Reconcile(context.Background(), guardianMobile)
	require.NoError(t, err)

	raw, err := json.Marshal(view.Wards)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), guardianMobile[2:])
	assert.NotContains(t, string(raw), "ravi@example.org")
}
