package domain

import "testing"

func TestTenantValidate(t *testing.T) {
	valid := &Tenant{ID: "t1", Code: "aurora", Name: "Aurora Plant", Active: true}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (&Tenant{ID: "t2", Name: "No Code"}).Validate(); err == nil {
		t.Error("missing code: want error")
	}
	if err := (&Tenant{ID: "t3", Code: "nocode"}).Validate(); err == nil {
		t.Error("missing name: want error")
	}
}
