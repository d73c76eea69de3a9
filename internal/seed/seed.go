package seed

import (
	"strconv"
	"strings"
)

// GenerateSQL builds INSERT statements for three demo servers with a week
// of plausible sample history, so reports and trends have something to
// show on a fresh database.
func GenerateSQL() string {
	var b strings.Builder
	b.WriteString("BEGIN;\n")

	b.WriteString(`
INSERT INTO servers (name, address) VALUES
('hypixel-demo', 'demo-hypixel.local:25565'),
('smp-demo', 'demo-smp.local:25565'),
('creative-demo', 'demo-creative.local:25565')
ON CONFLICT (name) DO NOTHING;
`)

	writeSample := func(server string, online, hoursAgo int) {
		b.WriteString("INSERT INTO samples (server_id, online_count, timestamp) ")
		b.WriteString("SELECT id, ")
		b.WriteString(strconv.Itoa(online))
		b.WriteString(", NOW() - INTERVAL '")
		b.WriteString(strconv.Itoa(hoursAgo))
		b.WriteString(" hours' FROM servers WHERE name = '")
		b.WriteString(server)
		b.WriteString("';\n")
	}

	// A week of hourly-ish samples per server. Player counts follow a
	// rough daily curve: low overnight, peaking in the evening.
	curve := []int{4, 3, 2, 2, 3, 5, 9, 14, 18, 22, 25, 28, 30, 31, 33, 36, 40, 46, 52, 55, 48, 32, 18, 9}
	scale := map[string]int{"hypixel-demo": 10, "smp-demo": 1, "creative-demo": 3}

	for name, mul := range scale {
		for h := 0; h < 7*24; h += 2 {
			online := curve[h%24]*mul + (h*7)%5
			writeSample(name, online, h)
		}
	}

	b.WriteString("COMMIT;\n")
	return b.String()
}
