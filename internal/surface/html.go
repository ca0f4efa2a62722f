package surface

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/matsen/btreeplay/internal/playback"
)

// compiledPage is parsed at init time to fail fast on template errors.
var compiledPage = template.Must(template.New("page").Parse(pageTemplate))

// PageOptions configures the HTML player.
type PageOptions struct {
	Title string

	// StartAtEnd shows the last frame first, for traces whose interesting
	// state is the final one.
	StartAtEnd bool
}

type pageFrame struct {
	Index    int
	SVG      template.HTML
	Message  template.HTML
	Progress float64
}

type pageData struct {
	Title  string
	Frames []pageFrame
	Delays []int64
	Start  int
}

// messageMarkup is the only markup allowed through from trace messages.
var messageMarkup = strings.NewReplacer(
	"&lt;code&gt;", "<code>", "&lt;/code&gt;", "</code>",
	"&lt;b&gt;", "<b>", "&lt;/b&gt;", "</b>",
)

func sanitizeMessage(msg string) template.HTML {
	return template.HTML(messageMarkup.Replace(template.HTMLEscapeString(msg)))
}

// WriteHTML writes a self-contained page that plays frames with the delays
// they carry. No frames yields an empty-state page.
func WriteHTML(w io.Writer, frames []playback.Frame, opts PageOptions) error {
	if len(frames) == 0 {
		_, err := io.WriteString(w, emptyPage)
		return err
	}

	data := pageData{Title: opts.Title, Frames: make([]pageFrame, len(frames))}
	if data.Title == "" {
		data.Title = "B-tree trace"
	}
	if opts.StartAtEnd {
		data.Start = len(frames) - 1
	}

	for i, f := range frames {
		var svg bytes.Buffer
		if err := WriteSVG(&svg, f.Scene, SVGOptions{}); err != nil {
			return fmt.Errorf("drawing frame %d: %w", i, err)
		}
		data.Frames[i] = pageFrame{
			Index:    f.Index,
			SVG:      template.HTML(svg.String()),
			Message:  sanitizeMessage(f.Message),
			Progress: f.Progress,
		}
		data.Delays = append(data.Delays, f.Delay.Milliseconds())
	}

	return compiledPage.Execute(w, data)
}

const emptyPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>B-tree trace - Empty</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
    .empty-state code {
      background: #e0e0e0;
      padding: 2px 6px;
      border-radius: 3px;
    }
  </style>
</head>
<body>
  <div class="empty-state">
    <h2>No steps to play</h2>
    <p>This trace does not contain any snapshots.</p>
    <p>Import one with <code>btp import response.json</code></p>
  </div>
</body>
</html>`

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      margin: 0;
      background: #f8fafc;
      color: #1e293b;
    }
    header {
      display: flex;
      gap: 8px;
      align-items: center;
      padding: 12px 16px;
      background: white;
      border-bottom: 1px solid #e2e8f0;
    }
    button {
      border: 1px solid #cbd5e1;
      background: white;
      border-radius: 6px;
      padding: 4px 12px;
      cursor: pointer;
    }
    #progress {
      flex: 1;
      height: 6px;
      background: #e2e8f0;
      border-radius: 3px;
      overflow: hidden;
    }
    #progress div {
      height: 100%;
      background: #3b82f6;
      transition: width 0.3s;
    }
    #message {
      padding: 8px 16px;
      min-height: 1.5em;
    }
    #message code {
      background: #e0e7ff;
      color: #4338ca;
      padding: 1px 5px;
      border-radius: 3px;
    }
    .frame { display: none; overflow: auto; padding: 16px; }
    .frame.active { display: block; }
  </style>
</head>
<body>
  <header>
    <button id="prev">&#9664;</button>
    <button id="play">&#9654;</button>
    <button id="next">&#9654;&#9654;</button>
    <span id="counter"></span>
    <div id="progress"><div></div></div>
  </header>
  <div id="message"></div>
  {{range .Frames}}
  <section class="frame" data-index="{{.Index}}" data-progress="{{.Progress}}">
    <template class="msg">{{.Message}}</template>
    {{.SVG}}
  </section>
  {{end}}
  <script>
    (function() {
      const delays = {{.Delays}};
      const frames = document.querySelectorAll('.frame');
      const last = frames.length - 1;
      let cursor = {{.Start}};
      let timer = null;

      function show() {
        frames.forEach((f, i) => f.classList.toggle('active', i === cursor));
        const f = frames[cursor];
        document.getElementById('message').innerHTML = f.querySelector('.msg').innerHTML;
        document.getElementById('counter').textContent = (cursor + 1) + ' / ' + frames.length;
        document.querySelector('#progress div').style.width = f.dataset.progress + '%';
      }

      function stop() {
        if (timer) clearTimeout(timer);
        timer = null;
        document.getElementById('play').innerHTML = '&#9654;';
      }

      function advance() {
        if (cursor >= last) { stop(); return; }
        cursor++;
        show();
        if (cursor >= last) { stop(); return; }
        timer = setTimeout(advance, delays[cursor]);
      }

      document.getElementById('next').onclick = () => {
        if (cursor < last) { cursor++; show(); } else { stop(); }
      };
      document.getElementById('prev').onclick = () => {
        if (cursor > 0) { cursor--; show(); }
      };
      document.getElementById('play').onclick = () => {
        if (timer) { stop(); return; }
        if (cursor >= last) cursor = -1;
        document.getElementById('play').innerHTML = '&#10074;&#10074;';
        advance();
      };

      show();
    })();
  </script>
</body>
</html>`
