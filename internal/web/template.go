package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/linebot/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"seconds": func(d time.Duration) string {
		return fmt.Sprintf("%.1fs", d.Seconds())
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>linebot {{.Name}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.state { font-weight: bold; }
.avoiding { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>linebot {{.Name}}<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Mission</h2>
<table>
<tr><th>State</th><td id="state" class="state">{{stateOrUnknown (printf "%s" .Robot.State)}}</td></tr>
<tr><th>Previous</th><td id="previous">{{printf "%s" .Robot.PreviousState}}</td></tr>
<tr><th>Started</th><td id="started">{{if .Robot.Started}}yes{{else}}no{{end}}</td></tr>
<tr><th>Mission time</th><td id="mission">{{seconds .Robot.MissionTime}}</td></tr>
<tr><th>Remaining</th><td id="remaining">{{seconds .Remaining}}</td></tr>
<tr><th>Obstacle time</th><td id="obstacle" class="{{if .Robot.Avoiding}}avoiding{{end}}">{{seconds .Robot.ObstacleTime}}</td></tr>
<tr><th>Crossings</th><td id="crossings">{{.Robot.Crossings}}</td></tr>
<tr><th>Zone armed</th><td id="zone">{{if .Robot.ZoneArmed}}yes{{else}}no{{end}}</td></tr>
<tr><th>Wheels</th><td id="wheels">{{.Robot.Wheels.Left}} / {{.Robot.Wheels.Right}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>State changes</th><td>{{.Robot.Counts.StateChanges}}</td></tr>
<tr><th>Crossings</th><td>{{.Robot.Counts.Crossings}}</td></tr>
<tr><th>Obstacles</th><td>{{.Robot.Counts.ObstaclesDetected}} detected, {{.Robot.Counts.ObstaclesCleared}} cleared</td></tr>
<tr><th>End markers</th><td>{{.Robot.Counts.EndMarkers}}</td></tr>
<tr><th>Deadlines</th><td>{{.Robot.Counts.Deadlines}}</td></tr>
<tr><th>Avoidance limits</th><td>{{.Robot.Counts.AvoidanceLimitHits}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Run</th><td>{{.RunID}}</td></tr>
<tr><th>Profile</th><td>{{.Config.Profile}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Booted</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Debug serial</th><td>{{if .Config.DebugSerial}}{{.Config.DebugSerial}}{{else}}disabled{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }
  function text(id, v) {
    document.getElementById(id).textContent = v;
  }
  function secs(ms) {
    return (ms / 1000).toFixed(1) + "s";
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 2000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        text("state", s.state);
        text("previous", s.previous_state || "");
        text("started", s.started ? "yes" : "no");
        text("mission", secs(s.mission_ms));
        text("remaining", secs(s.remaining_ms));
        text("obstacle", secs(s.obstacle_ms));
        document.getElementById("obstacle").className = s.avoiding ? "avoiding" : "";
        text("crossings", s.crossings);
        text("zone", s.zone_armed ? "yes" : "no");
        text("wheels", s.wheels.left + " / " + s.wheels.right);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Remaining() methods but the template needs
	// Duration fields.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		Remaining time.Duration
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Remaining: snap.Remaining(),
	}
	indexTmpl.Execute(w, data)
}
