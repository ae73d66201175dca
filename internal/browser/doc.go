// Package browser drives a headless Chrome session for pages that only render
// their content with JavaScript.
//
// A Browser opens one Page per fetch attempt. The page is bound to the context it
// was opened with, so a deadline on that context bounds navigation, waiting and
// reading, and Close always releases the Chrome process.
package browser
