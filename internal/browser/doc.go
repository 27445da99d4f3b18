// Package browser acquires an authenticated portal session with a remote-controlled
// browser.
//
// An Acquirer walks a fixed sequence of states: launch the browser, submit the
// login form, verify that the browser left the login page, open the target pages,
// and read the cookies. The browser is closed on every exit path.
//
// Portals without a data API are read by Scrape instead: after the same login it
// opens the results page and reads the matching elements through Driver.Extract.
//
// The Driver interface isolates the state machine from Chrome. ChromeDriver
// implements it with chromedp; tests use an in-memory driver.
package browser
