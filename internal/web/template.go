package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sensor-node/internal/status"
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
	"stateClass": func(e status.EntityStatus) string {
		switch {
		case !e.HasState:
			return "unknown"
		case e.State == "ON":
			return "on"
		case e.State == "OFF":
			return "off"
		}
		return ""
	},
	"componentClass": func(c status.ComponentStatus) string {
		switch {
		case c.State == "FAILED" || c.Error:
			return "failed"
		case c.Warning:
			return "warning"
		}
		return "ok"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Config.Node}}</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.ok, .connected { color: green; }
.warning { color: orange; }
.failed, .disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>{{.Config.Node}}{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Entities</h2>
<table>
{{range .Entities}}{{if not .Internal}}<tr><th>{{.Name}}</th><td id="{{.Domain}}/{{.ObjectID}}" class="{{stateClass .}}" data-unit="{{.Unit}}">{{if .HasState}}{{.State}}{{if .Unit}} {{.Unit}}{{end}}{{else}}UNKNOWN{{end}}</td></tr>
{{end}}{{end}}</table>

<h2>Components</h2>
<table>
{{range .Components}}<tr><th>{{.Name}}</th><td class="{{componentClass .}}">{{.State}}{{if .Warning}} (warning){{end}}{{if .Reason}}: {{.Reason}}{{end}}</td></tr>
{{end}}<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Node ID</th><td>{{.Config.NodeID}}</td></tr>
<tr><th>Version</th><td>{{.Config.Version}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Loop</th><td>{{.Config.LoopMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var prefix = "{{.Config.Prefix}}";
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(prefix + "/+/+/state");
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    var parts = t.split("/");
    if (parts.length < 3) return;
    var el = document.getElementById(parts[parts.length - 3] + "/" + parts[parts.length - 2]);
    if (!el) return;
    var state = payload.toString();
    var unit = el.getAttribute("data-unit");
    el.textContent = unit ? state + " " + unit : state;
    el.className = state === "ON" ? "on" : state === "OFF" ? "off" : "";
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Ready() methods but the template reads fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
	}
	indexTmpl.Execute(w, data)
}
