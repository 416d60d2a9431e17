package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// columnTitle turns SIMILARITY_SCORE into "Similarity score".
func columnTitle(col string) string {
	s := strings.ToLower(strings.ReplaceAll(col, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatCell renders one warehouse value for display. The column name picks
// money and score formatting.
func formatCell(col string, v any) string {
	upper := strings.ToUpper(col)
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(upper, x)
	case float32:
		return formatFloat(upper, float64(x))
	case int64:
		if strings.Contains(upper, "PRICE") {
			return formatFloat(upper, float64(x))
		}
		return humanize.Comma(x)
	case int:
		return humanize.Comma(int64(x))
	case time.Time:
		return x.Format("2006-01-02 15:04")
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(upperCol string, f float64) string {
	switch {
	case strings.Contains(upperCol, "PRICE"):
		if f < 0 {
			return "-$" + humanize.FormatFloat("#,###.##", -f)
		}
		return "$" + humanize.FormatFloat("#,###.##", f)
	case strings.Contains(upperCol, "SCORE"), strings.Contains(upperCol, "SIMILARITY"):
		return fmt.Sprintf("%.2f", f)
	case strings.Contains(upperCol, "SHARE"):
		return formatPercent(f)
	default:
		return humanize.FormatFloat("#,###.##", f)
	}
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
