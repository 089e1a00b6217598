// Package testing provides a list testing harness for listkit.
//
// # Quick Start
//
// Create a tester, pump a snapshot, and make assertions:
//
//	func TestMyList(t *testing.T) {
//	    tester := listtest.NewListTesterWithT(t, prefs.Default())
//	    tester.Pump(listtest.Rows(20, listtest.RowIDs("row", 50)...))
//
//	    if got := tester.DisplayedIDs(); got[0] != "row0" {
//	        t.Errorf("first row = %s", got[0])
//	    }
//
//	    tester.ScrollBy(200)
//	    content, _ := tester.ContentAt(0, 10)
//	    ...
//	}
//
// Content is produced by a recording Factory whose RecordingContent
// measures to its value, so a row's height is just its payload.
//
// # Snapshot Testing
//
// Capture and compare what the surface shows:
//
//	snapshot := tester.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/scrolled.snapshot.json")
//
// Update snapshots with:
//
//	LISTKIT_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import listtest "github.com/go-drift/listkit/pkg/testing"
package testing
