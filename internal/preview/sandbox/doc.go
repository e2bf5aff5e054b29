/*
Package sandbox runs synthesized preview documents in isolated JavaScript
runtimes.

# Overview

Every render creates a fresh Instance: a goja VM with its own global scope,
event loop goroutine and timers. Nothing survives from one render to the next,
so each revision of the user's code starts from a clean state.

# Environment

The VM emulates the slice of a browser window that preview code needs:

  - window / self / globalThis (the VM global)
  - parent.postMessage, the only channel out of the sandbox
  - console.log / warn / error (local behaviour: debug log on the host)
  - addEventListener / removeEventListener / dispatchEvent
  - setTimeout / clearTimeout / setInterval / clearInterval
  - innerWidth / innerHeight / screen from the viewport profile
  - document, a query proxy over the parsed markup

require, process, module and exports are removed. No host object is
reachable from script.

# Lifecycle

Host.Render stops the current instance, bumps the generation, attaches the new
generation to the Sink and starts the new instance. The instance runs every
<script> in document order, dispatches "error" for uncaught failures, then
dispatches "load" and keeps serving timers until stopped. The host moves to
Running only when MarkLoaded is called with the current generation:

	Idle -> Rendering -> Running -> (Idle | Rendering)

Each script run is bounded by Config.Timeout; a runaway script is interrupted
and reported as an error event.
*/
package sandbox
