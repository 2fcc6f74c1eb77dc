package tests

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/evalink/core/assignment"
	"github.com/trezcool/evalink/core/user"
	testutil "github.com/trezcool/evalink/tests"
)

func Test_assignmentApi_facultyLoads(t *testing.T) {
	e := setup(t)

	admin := testutil.CreateUser(t, e.users, "admin", "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	faculty := testutil.CreateUser(t, e.users, "f-001", "Grace Hopper", "grace@test.cd", "", user.RoleFaculty, true)
	student := testutil.CreateUser(t, e.users, "2021-00017", "Hero", "hero@test.cd", "", user.RoleStudent, true)
	adminToken := getToken(t, admin)

	dept := testutil.CreateDepartment(t, e.departments, "Mathematics")
	sec := testutil.CreateSection(t, e.sections, "BSM 1-A", dept.ID, 1)
	calc := testutil.CreateSubject(t, e.subjects, "MATH-101", "Calculus", dept.ID)

	load := func(facultyID string, subjectID, sectionID int) []byte {
		return marshalObj(t, assignment.NewFacultyLoad{FacultyID: facultyID, SubjectID: subjectID, SectionID: sectionID})
	}
	want := assignment.FacultyLoad{
		ID:             1,
		FacultyID:      faculty.ID,
		SubjectID:      calc.ID,
		SectionID:      sec.ID,
		FacultyName:    faculty.Name,
		SubjectName:    calc.Name,
		SubjectCode:    calc.Code,
		SectionName:    sec.Name,
		DepartmentName: dept.Name,
	}

	runTests(t, e, []httpTest{
		{name: "Admin required", method: http.MethodGet, path: "/v1/faculty-loads", token: getToken(t, faculty), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{
			name: "not a faculty member", method: http.MethodPost, path: "/v1/faculty-loads", token: adminToken, body: load(student.ID, calc.ID, sec.ID),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"faculty_id": "user is not a faculty member"}),
		},
		{
			name: "unknown faculty", method: http.MethodPost, path: "/v1/faculty-loads", token: adminToken, body: load("lol", calc.ID, sec.ID),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"faculty_id": "user not found"}),
		},
		{
			name: "unknown section", method: http.MethodPost, path: "/v1/faculty-loads", token: adminToken, body: load(faculty.ID, calc.ID, 999),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"section_id": "does not exist"}),
		},
		{name: "assigned", method: http.MethodPost, path: "/v1/faculty-loads", token: adminToken, body: load(faculty.ID, calc.ID, sec.ID), wantCode: http.StatusCreated, wantData: marshalObj(t, want)},
		{
			name: "already assigned", method: http.MethodPost, path: "/v1/faculty-loads", token: adminToken, body: load(faculty.ID, calc.ID, sec.ID),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "this subject is already assigned to this section"}),
		},
		{name: "list", method: http.MethodGet, path: "/v1/faculty-loads", token: adminToken, wantData: marshalList(t, want)},
		{name: "own sections", method: http.MethodGet, path: "/v1/users/" + faculty.ID + "/sections", token: getToken(t, faculty), wantData: marshalList(t, want)},
		{name: "unassigned", method: http.MethodDelete, path: "/v1/faculty-loads/1", token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "unknown load", method: http.MethodDelete, path: "/v1/faculty-loads/1", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "faculty load not found"}),
		},
	})
}

func Test_assignmentApi_enrollments(t *testing.T) {
	e := setup(t)

	admin := testutil.CreateUser(t, e.users, "admin", "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	faculty := testutil.CreateUser(t, e.users, "f-001", "Grace Hopper", "grace@test.cd", "", user.RoleFaculty, true)
	student := testutil.CreateUser(t, e.users, "2021-00017", "Hero", "hero@test.cd", "", user.RoleStudent, true)
	adminToken := getToken(t, admin)

	dept := testutil.CreateDepartment(t, e.departments, "Mathematics")
	calc := testutil.CreateSubject(t, e.subjects, "MATH-101", "Calculus", dept.ID)

	enroll := func(studentID string, subjectID int, facultyID string) []byte {
		return marshalObj(t, assignment.NewEnrollment{StudentID: studentID, SubjectID: subjectID, FacultyID: facultyID})
	}
	want := assignment.Enrollment{
		ID:          1,
		StudentID:   student.ID,
		SubjectID:   calc.ID,
		FacultyID:   faculty.ID,
		StudentName: student.Name,
		SubjectName: calc.Name,
		SubjectCode: calc.Code,
		FacultyName: faculty.Name,
	}

	runTests(t, e, []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: "/v1/student-subjects", token: adminToken, body: []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"student_id": "this field is required",
				"subject_id": "this field is required",
				"faculty_id": "this field is required",
			}),
		},
		{
			name: "not a student", method: http.MethodPost, path: "/v1/student-subjects", token: adminToken, body: enroll(faculty.ID, calc.ID, faculty.ID),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"student_id": "user is not a student"}),
		},
		{
			name: "unknown subject", method: http.MethodPost, path: "/v1/student-subjects", token: adminToken, body: enroll(student.ID, 999, faculty.ID),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"subject_id": "does not exist"}),
		},
		{name: "enrolled", method: http.MethodPost, path: "/v1/student-subjects", token: adminToken, body: enroll(student.ID, calc.ID, faculty.ID), wantCode: http.StatusCreated, wantData: marshalObj(t, want)},
		{
			name: "already enrolled", method: http.MethodPost, path: "/v1/student-subjects", token: adminToken, body: enroll(student.ID, calc.ID, faculty.ID),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "this student is already enrolled in this subject"}),
		},
		{name: "list", method: http.MethodGet, path: "/v1/student-subjects", token: adminToken, wantData: marshalList(t, want)},
		{name: "own subjects", method: http.MethodGet, path: "/v1/users/" + student.ID + "/subjects", token: getToken(t, student), wantData: marshalList(t, want)},
	})

	enrolled, err := e.assignments.IsEnrolled(ctxb, student.ID, calc.ID, faculty.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	rec := e.do(http.MethodDelete, "/v1/student-subjects/"+strconv.Itoa(want.ID), adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	enrolled, err = e.assignments.IsEnrolled(ctxb, student.ID, calc.ID, faculty.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
}
