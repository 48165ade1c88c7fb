package backupcodes

import (
	"context"
	"sync"
	"testing"
)

func TestConcurrentVerifySameCodeOnlyOneSucceeds(t *testing.T) {
	manager, done := newTestManager(t, nil)
	defer done()

	result, err := manager.Generate(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	code := result.Codes[0]

	var wg sync.WaitGroup
	results := make(chan *VerifyResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := manager.Verify(context.Background(), "u1", code, daytimeAttempt())
			if err != nil {
				t.Errorf("Verify failed: %v", err)
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	miss := 0
	for res := range results {
		if res.Valid {
			success++
		} else {
			miss++
		}
	}
	if success != 1 || miss != 1 {
		t.Fatalf("expected exactly one successful consume, got success=%d miss=%d", success, miss)
	}

	status, err := manager.Status(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.RemainingCodes != 4 {
		t.Fatalf("expected one code consumed in total, remaining=%d", status.RemainingCodes)
	}
}

func TestConcurrentVerifyDistinctCodesAllSucceed(t *testing.T) {
	manager, done := newTestManager(t, nil)
	defer done()

	result, err := manager.Generate(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// two distinct codes racing on the same set; both consumes must land
	var wg sync.WaitGroup
	valid := make(chan bool, 2)
	for _, code := range result.Codes[:2] {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			res, err := manager.Verify(context.Background(), "u1", code, daytimeAttempt())
			if err != nil {
				t.Errorf("Verify failed: %v", err)
				return
			}
			valid <- res.Valid
		}(code)
	}
	wg.Wait()
	close(valid)

	matched := 0
	for ok := range valid {
		if ok {
			matched++
		}
	}
	if matched != 2 {
		t.Fatalf("expected both distinct codes to consume, got %d", matched)
	}
	for _, code := range result.Codes[2:] {
		res, err := manager.Verify(context.Background(), "u1", code, daytimeAttempt())
		if err != nil || !res.Valid {
			t.Fatalf("expected remaining code to consume, valid=%v err=%v", res != nil && res.Valid, err)
		}
	}

	status, err := manager.Status(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.RemainingCodes != 0 {
		t.Fatalf("expected exhausted set, remaining=%d", status.RemainingCodes)
	}
}
