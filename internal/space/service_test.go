package space

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"bujo/internal/auth"
	"bujo/internal/jobs"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := gdb.AutoMigrate(&auth.User{}, &Space{}, &Membership{}, &Invitation{}, &jobs.Job{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gdb.Exec(`
create unique index if not exists uq_invites_space_email_pending
on space_invites(space_id, email)
where accepted_at is null;
`).Error; err != nil {
		t.Fatalf("index: %v", err)
	}
	return gdb
}

func newTestUser(t *testing.T, gdb *gorm.DB, email string) auth.User {
	t.Helper()
	u := auth.User{Email: email, PasswordHash: "x"}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateSpace_CreatesOwnerMembership(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")

	sp, err := svc.CreateSpace(ctx, alice.ID, "Home")
	if err != nil {
		t.Fatalf("CreateSpace: %v", err)
	}
	if sp.ID == 0 || sp.Name != "Home" || sp.CreatedBy != alice.ID {
		t.Fatalf("unexpected space: %+v", sp)
	}

	role, ok, err := svc.RoleOf(ctx, sp.ID, alice.ID)
	if err != nil {
		t.Fatalf("RoleOf: %v", err)
	}
	if !ok || role != RoleOwner {
		t.Fatalf("creator should be owner, got ok=%v role=%q", ok, role)
	}
}

func TestCreateSpace_EmptyName(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}

	alice := newTestUser(t, gdb, "alice@example.com")

	if _, err := svc.CreateSpace(context.Background(), alice.ID, "   "); err != ErrNameRequired {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestListSpacesFor_NewestFirstWithRole(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	bob := newTestUser(t, gdb, "bob@example.com")

	first, _ := svc.CreateSpace(ctx, alice.ID, "First")
	second, _ := svc.CreateSpace(ctx, alice.ID, "Second")

	// bob is in neither
	rows, err := svc.ListSpacesFor(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListSpacesFor: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("bob should see no spaces, got %d", len(rows))
	}

	rows, err = svc.ListSpacesFor(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListSpacesFor: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 spaces, got %d", len(rows))
	}
	if rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("expected newest first, got %v then %v", rows[0].ID, rows[1].ID)
	}
	if rows[0].Role != RoleOwner {
		t.Fatalf("expected owner role annotation, got %q", rows[0].Role)
	}
}

func TestInvite_OwnerOnly(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	bob := newTestUser(t, gdb, "bob@example.com")
	carol := newTestUser(t, gdb, "carol@example.com")

	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")

	// bob has no membership at all
	if _, err := svc.Invite(ctx, bob.ID, sp.ID, "x@example.com", RoleMember); err != ErrNotMember {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}

	// carol joins as plain member, still may not invite
	inv, err := svc.Invite(ctx, alice.ID, sp.ID, "carol@example.com", RoleMember)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if _, err := svc.AcceptInvite(ctx, carol.ID, inv.ID); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if _, err := svc.Invite(ctx, carol.ID, sp.ID, "y@example.com", RoleMember); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestInvite_DuplicatePendingConflicts(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")

	if _, err := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleMember); err != nil {
		t.Fatalf("first invite: %v", err)
	}
	if _, err := svc.Invite(ctx, alice.ID, sp.ID, "B@x.com", RoleMember); err != ErrDuplicateInvite {
		t.Fatalf("expected ErrDuplicateInvite, got %v", err)
	}

	var n int64
	gdb.Model(&Invitation{}).Where("space_id = ? AND email = ?", sp.ID, "b@x.com").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one pending invite, got %d", n)
	}
}

func TestInvite_EnqueuesEmailJob(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")

	inv, err := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleMember)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if inv.Token == "" {
		t.Fatal("invite should carry a token")
	}

	var n int64
	gdb.Model(&jobs.Job{}).Where("type = ? AND status = ?", jobs.TypeInviteEmail, jobs.StatusPending).Count(&n)
	if n != 1 {
		t.Fatalf("expected one pending invite email job, got %d", n)
	}
}

func TestAcceptInvite_Flow(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	bob := newTestUser(t, gdb, "b@x.com")

	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")
	inv, err := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleMember)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	if ok, _ := svc.IsMember(ctx, sp.ID, bob.ID); ok {
		t.Fatal("bob should not be a member before accepting")
	}

	pending, err := svc.ListPendingInvitesFor(ctx, "b@x.com")
	if err != nil {
		t.Fatalf("ListPendingInvitesFor: %v", err)
	}
	if len(pending) != 1 || pending[0].SpaceName != "Home" {
		t.Fatalf("unexpected pending invites: %+v", pending)
	}

	m, err := svc.AcceptInvite(ctx, bob.ID, inv.ID)
	if err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if m.SpaceID != sp.ID || m.UserID != bob.ID || m.Role != RoleMember {
		t.Fatalf("unexpected membership: %+v", m)
	}

	if ok, _ := svc.IsMember(ctx, sp.ID, bob.ID); !ok {
		t.Fatal("bob should be a member after accepting")
	}

	var stored Invitation
	if err := gdb.First(&stored, inv.ID).Error; err != nil {
		t.Fatalf("load invite: %v", err)
	}
	if stored.AcceptedAt == nil {
		t.Fatal("accepted_at should be set")
	}

	pending, _ = svc.ListPendingInvitesFor(ctx, "b@x.com")
	if len(pending) != 0 {
		t.Fatalf("accepted invite still listed as pending: %+v", pending)
	}
}

func TestAcceptInvite_RoleCopiedVerbatim(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	bob := newTestUser(t, gdb, "b@x.com")

	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")
	inv, _ := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleOwner)

	m, err := svc.AcceptInvite(ctx, bob.ID, inv.ID)
	if err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if m.Role != RoleOwner {
		t.Fatalf("expected owner role copied from invite, got %q", m.Role)
	}
}

func TestAcceptInvite_NotReplayable(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	bob := newTestUser(t, gdb, "b@x.com")

	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")
	inv, _ := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleMember)

	if _, err := svc.AcceptInvite(ctx, bob.ID, inv.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := svc.AcceptInvite(ctx, bob.ID, inv.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on replay, got %v", err)
	}

	var n int64
	gdb.Model(&Membership{}).Where("space_id = ? AND user_id = ?", sp.ID, bob.ID).Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one membership, got %d", n)
	}
}

func TestAcceptInvite_AlreadyMemberKeepsInvitePending(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")

	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")
	inv, _ := svc.Invite(ctx, alice.ID, sp.ID, "alice@example.com", RoleMember)

	// alice already owns the space; redeeming her own invite must not
	// create a second membership or burn the invitation
	if _, err := svc.AcceptInvite(ctx, alice.ID, inv.ID); err != ErrAlreadyMember {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	var stored Invitation
	gdb.First(&stored, inv.ID)
	if stored.AcceptedAt != nil {
		t.Fatal("accepted_at must stay null when membership insert fails")
	}
}

func TestAcceptInvite_Missing(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}

	bob := newTestUser(t, gdb, "b@x.com")

	if _, err := svc.AcceptInvite(context.Background(), bob.ID, 12345); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvite_AgainAfterAcceptance(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	bob := newTestUser(t, gdb, "b@x.com")

	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")
	inv, _ := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleMember)
	if _, err := svc.AcceptInvite(ctx, bob.ID, inv.ID); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}

	// pending uniqueness is scoped to unaccepted invites only
	if _, err := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleMember); err != nil {
		t.Fatalf("re-invite after acceptance should pass the partial index, got %v", err)
	}
}

func TestListMembers_Roster(t *testing.T) {
	gdb := newTestDB(t)
	svc := &Service{DB: gdb}
	ctx := context.Background()

	alice := newTestUser(t, gdb, "alice@example.com")
	bob := newTestUser(t, gdb, "b@x.com")
	outsider := newTestUser(t, gdb, "out@x.com")

	sp, _ := svc.CreateSpace(ctx, alice.ID, "Home")
	inv, _ := svc.Invite(ctx, alice.ID, sp.ID, "b@x.com", RoleMember)
	if _, err := svc.AcceptInvite(ctx, bob.ID, inv.ID); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}

	members, err := svc.ListMembers(ctx, alice.ID, sp.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].UserID != alice.ID || members[0].Role != RoleOwner {
		t.Fatalf("unexpected first roster entry: %+v", members[0])
	}

	if _, err := svc.ListMembers(ctx, outsider.ID, sp.ID); err != ErrNotMember {
		t.Fatalf("expected ErrNotMember for outsider, got %v", err)
	}
}
