// Package testing provides a presenter testing kit.
//
// # Quick Start
//
// Create a tester, register recording descriptors, present and assert:
//
//	func TestCompose(t *testing.T) {
//	    tester := presenttest.NewPresenterTester(t)
//	    tester.Register("Inbox", presenttest.Behavior{})
//	    tester.Register("Compose", presenttest.Behavior{},
//	        presentation.WithOptions(presentation.Modal))
//
//	    tester.Present("Inbox", presentation.None, nil)
//	    compose := tester.Present("Compose", presentation.None, nil)
//	    tester.Settle()
//
//	    if got := tester.Active(); !slices.Equal(got, []string{"Compose"}) {
//	        t.Errorf("active = %v", got)
//	    }
//	    compose.Dismiss("sent")
//	}
//
// # Controlling loads
//
// View loads complete immediately unless their resource is held:
//
//	tester.Views().Hold("Compose")
//	h := tester.Present("Compose", presentation.None, nil)
//	h.Dismiss(nil) // cancelled while loading
//	tester.Views().Release("Compose")
//
// # Snapshot Testing
//
// Capture and compare the stack against a golden file:
//
//	tester.CaptureSnapshot().MatchesFile(t, "testdata/compose.snapshot.yaml")
//
// Update snapshots with:
//
//	PRESENT_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Timers
//
// Advance moves the fake clock and ticks the presenter:
//
//	tester.Advance(100 * time.Millisecond)
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import presenttest "github.com/go-drift/present/pkg/testing"
package testing
