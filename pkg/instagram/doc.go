// Package instagram talks to instagram.com.
//
// Client is the HTTP transport: it carries browser-like headers, maps
// status codes onto the module's typed errors and streams media for the
// downloader. A Session turns a post URL into a raw normalizer.Payload using
// one retrieval technique:
//
//   - APISession posts to the public GraphQL API (XDTGraph* payloads)
//   - QuerySession calls the internal persisted query (Graph* payloads)
//   - PageSession fetches the post page and reads its JSON-LD block
//   - BrowserSession renders the page in headless Chrome first
//
// Every session reports removed or private posts as an unavailable error so
// callers can tell them apart from transport failures.
package instagram
