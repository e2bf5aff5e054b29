// Package document builds the self-contained HTML document that the preview
// sandbox executes.
//
// The document carries a console-relay shim in <head>, ahead of any user
// script, that wraps console.log, console.warn and console.error and forwards
// each call to the embedding host with parent.postMessage. The same shim
// relays uncaught errors and signals load completion:
//
//	{type: "console", level: "log"|"warn"|"error", message: "..."}
//	{type: "loaded"}
//
// Synthesize is a pure function; it never fails.
package document

import (
	"regexp"
	"strings"
)

// ShimAttribute marks the relay shim's <script> element.
const ShimAttribute = "data-preview-shim"

// Shim is the console-relay script injected ahead of user code.
const Shim = `(function () {
  var relay = function (msg) {
    try { window.parent.postMessage(msg, '*'); } catch (e) {}
  };
  var format = function (value) {
    if (typeof value === 'string') return value;
    if (value instanceof Error) return value.name + ': ' + value.message;
    try {
      var json = JSON.stringify(value);
      return json === undefined ? String(value) : json;
    } catch (e) {
      return String(value);
    }
  };
  ['log', 'warn', 'error'].forEach(function (level) {
    var original = console[level];
    console[level] = function () {
      var args = Array.prototype.slice.call(arguments);
      if (typeof original === 'function') original.apply(console, args);
      relay({ type: 'console', level: level, message: args.map(format).join(' ') });
    };
  });
  window.addEventListener('error', function (event) {
    var message = event && event.message ? event.message : String(event);
    relay({ type: 'console', level: 'error', message: message });
  });
  window.addEventListener('load', function () {
    relay({ type: 'loaded' });
  });
})();`

var (
	closeScript = regexp.MustCompile(`(?i)</script`)
	closeStyle  = regexp.MustCompile(`(?i)</style`)
)

// Synthesize combines markup, style and script into one executable document.
func Synthesize(b Buffers) string {
	var sb strings.Builder
	sb.Grow(len(Shim) + len(b.Markup) + len(b.Style) + len(b.Script) + 256)

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	sb.WriteString("<style>\n")
	sb.WriteString(closeStyle.ReplaceAllString(b.Style, `<\/style`))
	sb.WriteString("\n</style>\n")
	sb.WriteString("<script " + ShimAttribute + ">\n")
	sb.WriteString(Shim)
	sb.WriteString("\n</script>\n</head>\n<body>\n")
	sb.WriteString(b.Markup)
	sb.WriteString("\n<script>\n")
	sb.WriteString(closeScript.ReplaceAllString(b.Script, `<\/script`))
	sb.WriteString("\n</script>\n</body>\n</html>\n")

	return sb.String()
}
