// Package browser is the page driver used by the replay engine.
//
// The engine only sees the Page, Scope and Element interfaces. A Page is the
// main document of a browser tab and also a Scope; Frames returns one Scope
// per nested frame. Elements are found with Playwright selector strings built
// by the helpers in selector.go.
//
// # Playwright
//
// Launcher owns the Playwright driver process. Open launches a browser,
// creates an isolated context and returns a Session, which implements Page:
//
//	launcher := browser.NewLauncher(browser.SessionOptions{
//	    Browser:  "chromium",
//	    Headless: false,
//	})
//	defer launcher.Shutdown()
//
//	page, err := launcher.Open(ctx)
//	if err != nil {
//	    return err
//	}
//	defer page.Close()
//
//	err = page.Navigate(ctx, "https://example.com/form")
//	el, err := page.Query(ctx, browser.ByID("name_input"))
//
// Every call takes a context. Cancellation is checked before each driver
// call, and a context deadline becomes the Playwright timeout of the call.
//
// # Inspection
//
// ExtractFields lists the form controls of an HTML document. The inspect
// command uses it to draft title-to-identifier tables.
package browser
