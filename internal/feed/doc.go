// Package feed describes what to scrape: the numbered source catalog, the
// listing filters and time ranges Reddit accepts, and the Query handed to the
// feed client.
//
// The catalog replaces a loosely keyed menu with a typed mapping that is
// validated once at startup, so a bad subreddit name fails configuration
// loading instead of the first scrape.
package feed
