package domain

import (
	"errors"
	"testing"
)

func TestValidateNonEmpty(t *testing.T) {
	got, err := ValidateNonEmpty("  Ada  ", "name")
	if err != nil || got != "Ada" {
		t.Fatalf("expected trimmed value, got %q err=%v", got, err)
	}
	_, err = ValidateNonEmpty(" \t\n", "name")
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "name" || !errors.Is(err, ErrEmptyField) {
		t.Fatalf("expected empty field error, got %v", err)
	}
}

func TestValidateAge(t *testing.T) {
	cases := []struct {
		in   string
		want int
		err  error
	}{
		{"0", 0, nil},
		{" 42 ", 42, nil},
		{"120", 120, nil},
		{"121", 0, ErrAgeOutOfRange},
		{"-1", 0, ErrAgeOutOfRange},
		{"abc", 0, ErrNotANumber},
		{"4.5", 0, ErrNotANumber},
		{"", 0, ErrNotANumber},
	}
	for _, tc := range cases {
		got, err := ValidateAge(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Errorf("ValidateAge(%q) err = %v, want %v", tc.in, err, tc.err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ValidateAge(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	got, err := ValidateEmail("  Ada@Example.COM ")
	if err != nil || got != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q err=%v", got, err)
	}
	for _, bad := range []string{"", "ada", "ada@", "@example.com", "ada@example", "a da@example.com", "a@b@c.d"} {
		if _, err := ValidateEmail(bad); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("ValidateEmail(%q) err = %v, want invalid email", bad, err)
		}
	}
}

func TestNewPersonFieldOrder(t *testing.T) {
	_, err := NewPerson(PersonInput{Name: "", Age: "x", Email: "bad"})
	if KindOf(err) != KindEmptyField {
		t.Fatalf("name must be checked first, got %v", err)
	}
	_, err = NewPerson(PersonInput{Name: "Ada", Age: "x", Email: "bad"})
	if KindOf(err) != KindNotANumber {
		t.Fatalf("age must be checked before email, got %v", err)
	}
	_, err = NewPerson(PersonInput{Name: "Ada", Age: "30", Email: "bad"})
	if KindOf(err) != KindInvalidEmail {
		t.Fatalf("expected invalid email, got %v", err)
	}
	p, err := NewPerson(PersonInput{Name: " Ada ", Age: "30", Email: "ADA@x.io"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != (Person{Name: "Ada", Age: 30, Email: "ada@x.io"}) {
		t.Fatalf("unexpected person %+v", p)
	}
}

func TestNewEntities(t *testing.T) {
	in := PersonInput{Name: "Ada", Age: "30", Email: "ada@x.io"}
	if _, err := NewStudent(" ", in); KindOf(err) != KindEmptyField {
		t.Fatalf("expected empty student id error, got %v", err)
	}
	s, err := NewStudent(" S1 ", in)
	if err != nil || s.ID != "S1" || s.Validate() != nil {
		t.Fatalf("unexpected student %+v err=%v", s, err)
	}
	i, err := NewInstructor("I1", in)
	if err != nil || i.ID != "I1" || i.Validate() != nil {
		t.Fatalf("unexpected instructor %+v err=%v", i, err)
	}
	if _, err := NewInstructor("I2", PersonInput{Name: "Bo", Age: "200", Email: "bo@x.io"}); KindOf(err) != KindAgeOutOfRange {
		t.Fatalf("expected age out of range, got %v", err)
	}

	c, err := NewCourse("C1", " Math ", StringPtr("  "))
	if err != nil || c.Name != "Math" || c.InstructorID != nil {
		t.Fatalf("blank instructor must normalize to none: %+v err=%v", c, err)
	}
	c, err = NewCourse("C1", "Math", StringPtr(" I1 "))
	if err != nil || !c.HasInstructor("I1") {
		t.Fatalf("expected trimmed instructor ref: %+v err=%v", c, err)
	}
	var fe *FieldError
	if _, err := NewCourse("C1", "", nil); !errors.As(err, &fe) || fe.Field != "course_name" {
		t.Fatalf("expected course_name error, got %v", err)
	}
}

func TestRecordValidate(t *testing.T) {
	if err := (Student{ID: "S1", Person: Person{Name: "A", Age: 121, Email: "a@b.c"}}).Validate(); KindOf(err) != KindAgeOutOfRange {
		t.Fatalf("expected age error, got %v", err)
	}
	if err := (Instructor{ID: "", Person: Person{Name: "A", Email: "a@b.c"}}).Validate(); KindOf(err) != KindEmptyField {
		t.Fatalf("expected id error, got %v", err)
	}
	if err := (Course{ID: "C1"}).Validate(); KindOf(err) != KindEmptyField {
		t.Fatalf("expected name error, got %v", err)
	}
	p := Person{Name: " A ", Age: 3, Email: " A@B.C "}.Normalize()
	if p.Name != "A" || p.Email != "a@b.c" {
		t.Fatalf("unexpected normalize result %+v", p)
	}
}
