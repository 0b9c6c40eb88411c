// Package source turns one upstream response into a list of event records.
//
// Three implementations share the Source interface: APISource decodes the connpass
// events API, ScrapeSource walks the search results page with fixed CSS selectors, and
// FeedSource reads a group Atom/RSS feed. All of them produce the common event.Event
// shape with absent fields left as event.None rather than dropped.
package source
