package market

import (
	"strings"
	"sync"
	"time"

	"github.com/scmhub/calendar"
)

// DefaultMIC 无法识别后缀时使用的交易所 (NYSE)
const DefaultMIC = "xnys"

// suffixMIC ticker 后缀到 ISO 10383 MIC 的映射
var suffixMIC = map[string]string{
	"L":  "xlon",
	"PA": "xpar",
	"DE": "xfra",
	"AS": "xams",
	"BR": "xbru",
	"MI": "xmil",
	"MC": "xmad",
	"ST": "xsto",
	"CO": "xcse",
	"HE": "xhel",
	"VI": "xwbo",
	"SW": "xswx",
	"TO": "xtse",
	"V":  "xtsx",
	"T":  "xtks",
	"HK": "xhkg",
	"AX": "xasx",
	"KS": "xkrx",
	"TW": "xtai",
	"SS": "xshg",
	"SZ": "xshe",
}

// ExchangeFor 根据 ticker 后缀推断交易所 MIC (小写)
func ExchangeFor(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndexByte(symbol, '.'); i >= 0 && i < len(symbol)-1 {
		if mic, ok := suffixMIC[symbol[i+1:]]; ok {
			return mic
		}
	}
	return DefaultMIC
}

var (
	calMu  sync.Mutex
	calMap = map[string]*calendar.Calendar{}
)

func calendarFor(mic string) *calendar.Calendar {
	calMu.Lock()
	defer calMu.Unlock()
	if c, ok := calMap[mic]; ok {
		return c
	}
	c := calendar.GetCalendar(mic)
	calMap[mic] = c
	return c
}

// IsOpen 返回 symbol 所在交易所及该交易所在 t 时刻是否处于交易时段
func IsOpen(symbol string, t time.Time) (mic string, open bool) {
	mic = ExchangeFor(symbol)
	if c := calendarFor(mic); c != nil {
		return mic, c.IsOpen(t.In(c.Loc))
	}
	return mic, fallbackOpen(t)
}

// fallbackOpen 日历不可用时退化为纽约时间周一至周五 09:30-16:00
func fallbackOpen(t time.Time) bool {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	t = t.In(loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
