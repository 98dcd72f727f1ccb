package robotstatus

import "testing"

func TestMemoryStoreSetAndGet(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{RobotID: 2, State: "idle", Battery: 90})

	got, ok := s.Get(2)
	if !ok || got.Battery != 90 {
		t.Fatalf("unexpected status: %+v ok=%v", got, ok)
	}
}

func TestMemoryStoreListIsIDOrdered(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{RobotID: 3})
	s.Set(Status{RobotID: 1})
	s.Set(Status{RobotID: 2})

	list := s.List()
	if len(list) != 3 || list[0].RobotID != 1 || list[1].RobotID != 2 || list[2].RobotID != 3 {
		t.Fatalf("expected id-ordered list, got %+v", list)
	}
}

func TestAssignmentInFlightSuppressesStaleIdle(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{RobotID: 1, State: "idle"})
	s.MarkAssignmentInFlight(1, "job_1")

	// A stale idle update racing with the in-flight assignment must not
	// overwrite the in-flight marker.
	s.Set(Status{RobotID: 1, State: "idle", CurrentJobID: ""})

	got, _ := s.Get(1)
	if !got.AssignmentInFlight {
		t.Fatal("expected assignment-in-flight to survive a stale idle update")
	}

	s.Set(Status{RobotID: 1, State: "moving_to_pickup", CurrentJobID: "job_1"})
	got, _ = s.Get(1)
	if got.AssignmentInFlight {
		t.Fatal("expected a confirming update to clear the in-flight marker")
	}
}

func TestEligibleRespectsBatteryAndCharging(t *testing.T) {
	s := Status{State: "idle", Battery: 15}
	if s.Eligible(20) {
		t.Fatal("expected ineligible below battery threshold")
	}
	s.Battery = 25
	if !s.Eligible(20) {
		t.Fatal("expected eligible above battery threshold")
	}
	s.State = "charging"
	if s.Eligible(20) {
		t.Fatal("expected ineligible while charging")
	}
}
