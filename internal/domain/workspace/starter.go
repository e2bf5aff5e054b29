package workspace

var starterFiles = []struct{ name, content string }{
	{"index.html", `<main>
  <h1>Hello, Codelab</h1>
  <p>Edit the files on the left and watch this panel update.</p>
  <button id="greet">Say hello</button>
</main>
`},
	{"style.css", `body {
  font-family: system-ui, sans-serif;
  margin: 2rem;
}

h1 {
  color: #3b82f6;
}
`},
	{"script.js", `const button = document.getElementById('greet');
button.addEventListener('click', function () {
  console.log('Hello from the preview!');
});
console.log('Page ready');
`},
	{"main.py", `print("Hello from Python")
`},
}

// Starter returns the in-memory project used when no workspace directory
// is configured. index.html is active.
func Starter() *Workspace {
	ws := New()
	for _, f := range starterFiles {
		_, _ = ws.Put(f.name, f.content)
	}
	return ws
}
