package rbac

import (
	"errors"
	"testing"
)

func TestVisibleNotes(t *testing.T) {
	notes := []Note{
		{WriterID: "staff-1", WriterDepartmentID: 1},
		{WriterID: "staff-2", WriterDepartmentID: 1},
		{WriterID: "staff-3", WriterDepartmentID: 2},
		{WriterID: "loner", WriterDepartmentID: 0},
	}
	count := func(s Subject) []string {
		var ids []string
		for _, n := range notes {
			if CanView(s, n) {
				ids = append(ids, n.WriterID)
			}
		}
		return ids
	}

	if got := count(Subject{UserID: "staff-1", DepartmentID: 1, Role: RoleStaff}); len(got) != 1 || got[0] != "staff-1" {
		t.Fatalf("staff should only see own notes, got %v", got)
	}
	if got := count(Subject{UserID: "lead", DepartmentID: 1, Role: RoleLeader}); len(got) != 2 {
		t.Fatalf("leader should see department 1 notes, got %v", got)
	}
	if got := count(Subject{UserID: "loner", Role: RoleLeader}); len(got) != 1 || got[0] != "loner" {
		t.Fatalf("leader without department sees own notes, got %v", got)
	}
	for _, r := range []Role{RoleExecutive, RoleAdmin, RoleMaster} {
		if got := count(Subject{UserID: "x", Role: r}); len(got) != len(notes) {
			t.Fatalf("%s should see all notes, got %v", r, got)
		}
	}
	if sc := VisibleNotes(Subject{UserID: "lead", DepartmentID: 7, Role: RoleLeader}); sc.Kind != ScopeDepartment || sc.DepartmentID != 7 {
		t.Fatalf("unexpected scope %+v", sc)
	}
}

func TestCheckEdit(t *testing.T) {
	writer := Subject{UserID: "w", DepartmentID: 1, Role: RoleStaff}
	leader := Subject{UserID: "l", DepartmentID: 1, Role: RoleLeader}
	other := Subject{UserID: "o", DepartmentID: 1, Role: RoleStaff}
	open := Note{WriterID: "w", WriterDepartmentID: 1}
	locked := Note{WriterID: "w", WriterDepartmentID: 1, CheckerSigned: true}

	cases := []struct {
		name  string
		s     Subject
		n     Note
		admin bool
		want  error
	}{
		{"writer unlocked", writer, open, false, nil},
		{"writer locked", writer, locked, false, ErrLocked},
		{"writer admin mode", writer, locked, true, ErrForbidden},
		{"other staff", other, open, false, ErrForbidden},
		{"leader without admin mode", leader, open, false, ErrForbidden},
		{"leader admin mode on locked", leader, locked, true, nil},
		{"writer leader locked no admin", Subject{UserID: "w", Role: RoleLeader}, locked, false, ErrLocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckEdit(tc.s, tc.n, tc.admin)
			if !errors.Is(err, tc.want) {
				t.Fatalf("CheckEdit = %v, want %v", err, tc.want)
			}
			if CanEditContent(tc.s, tc.n, tc.admin) != (tc.want == nil) {
				t.Fatal("CanEditContent disagrees with CheckEdit")
			}
		})
	}
}

func TestCanMutateSchedulingFields(t *testing.T) {
	if CanMutateSchedulingFields(Subject{Role: RoleMaster}, false) {
		t.Fatal("scheduling edits need admin mode")
	}
	if CanMutateSchedulingFields(Subject{Role: RoleStaff}, true) {
		t.Fatal("staff cannot edit scheduling fields")
	}
	if !CanMutateSchedulingFields(Subject{Role: RoleLeader}, true) {
		t.Fatal("leader in admin mode may edit scheduling fields")
	}
}

func TestCanSignAndProxy(t *testing.T) {
	if CanSign(Subject{Role: RoleStaff}) {
		t.Fatal("staff cannot sign")
	}
	for _, r := range []Role{RoleLeader, RoleExecutive, RoleAdmin, RoleMaster} {
		if !CanSign(Subject{Role: r}) {
			t.Fatalf("%s should sign", r)
		}
	}
	master := Subject{UserID: "m", Role: RoleMaster}
	if !CanProxySign(master, Subject{UserID: "l", Role: RoleLeader}) {
		t.Fatal("master may proxy for a leader")
	}
	if CanProxySign(master, Subject{UserID: "s", Role: RoleStaff}) {
		t.Fatal("delegate must be leader level")
	}
	if CanProxySign(Subject{Role: RoleAdmin}, Subject{Role: RoleLeader}) {
		t.Fatal("only master may proxy")
	}
}

func TestCanMutateRole(t *testing.T) {
	master := Subject{UserID: "m1", Role: RoleMaster}
	if err := CanMutateRole(Subject{Role: RoleAdmin}, RoleStaff, RoleLeader, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin must not change roles, got %v", err)
	}
	if err := CanMutateRole(master, RoleMaster, RoleStaff, 1); !errors.Is(err, ErrLastMaster) {
		t.Fatalf("expected last master error, got %v", err)
	}
	if err := CanMutateRole(master, RoleMaster, RoleMaster, 1); err != nil {
		t.Fatalf("master to master is fine, got %v", err)
	}
	if err := CanMutateRole(master, RoleMaster, RoleStaff, 2); err != nil {
		t.Fatalf("demotion allowed with two masters, got %v", err)
	}
	if err := CanMutateRole(master, RoleStaff, RoleLeader, 1); err != nil {
		t.Fatalf("promotion allowed, got %v", err)
	}
}

func TestCheckDelete(t *testing.T) {
	locked := Note{WriterID: "w", CheckerSigned: true}
	if err := CheckDelete(Subject{UserID: "w", Role: RoleStaff}, Note{WriterID: "w"}); err != nil {
		t.Fatalf("writer may delete unsigned note: %v", err)
	}
	if err := CheckDelete(Subject{UserID: "w", Role: RoleStaff}, locked); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected locked, got %v", err)
	}
	if err := CheckDelete(Subject{UserID: "x", Role: RoleStaff}, Note{WriterID: "w"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := CheckDelete(Subject{UserID: "l", Role: RoleLeader}, locked); err != nil {
		t.Fatalf("leader may override: %v", err)
	}
}
