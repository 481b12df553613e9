// Package crawler walks a graph of documents breadth-first starting at a root
// document and writes one rendered page per reachable document. It owns the
// slug registry and frontier for the duration of a run and drives the
// converter, the image localizer, and the page renderer for every document it
// visits.
package crawler
