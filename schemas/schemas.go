// Package schemas embeds the JSON Schemas for documents exchanged with the scraper.
package schemas

import _ "embed"

// ScrapeSessionFile is the file name of the scrape session schema.
const ScrapeSessionFile = "scrape_session.schema.json"

// ScrapeSession is the JSON Schema for the scraper's session output.
//
//go:embed scrape_session.schema.json
var ScrapeSession string
