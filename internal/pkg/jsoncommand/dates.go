package jsoncommand

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

// DefaultOutputLayout 输出日期使用的格式.
const DefaultOutputLayout = "2006-01-02"

// ConvertDatePattern 把 yyyy-MM-dd 风格的模式转换为 Go 时间布局.
// 单引号内的文本原样保留，未识别的字母按字面量处理.
func ConvertDatePattern(pattern string) string {
	var sb strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '\'' {
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				j++
			}
			if j == i+1 {
				sb.WriteRune('\'')
			} else {
				sb.WriteString(string(runes[i+1 : j]))
			}
			i = j + 1
			continue
		}
		if !unicode.IsLetter(r) {
			sb.WriteRune(r)
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == r {
			j++
		}
		sb.WriteString(layoutOf(r, j-i))
		i = j
	}
	return sb.String()
}

func layoutOf(r rune, n int) string {
	switch r {
	case 'y':
		if n == 2 {
			return "06"
		}
		return "2006"
	case 'M':
		switch {
		case n >= 4:
			return "January"
		case n == 3:
			return "Jan"
		case n == 2:
			return "01"
		}
		return "1"
	case 'd':
		if n >= 2 {
			return "02"
		}
		return "2"
	case 'H':
		return "15"
	case 'h':
		if n >= 2 {
			return "03"
		}
		return "3"
	case 'm':
		if n >= 2 {
			return "04"
		}
		return "4"
	case 's':
		if n >= 2 {
			return "05"
		}
		return "5"
	case 'S':
		return strings.Repeat("0", n)
	case 'a':
		return "PM"
	case 'E':
		if n >= 4 {
			return "Monday"
		}
		return "Mon"
	}
	return strings.Repeat(string(r), n)
}

// textualPattern 模式中含月份名、星期名或上下午标记，引号内的文本不算.
func textualPattern(pattern string) bool {
	runes := []rune(pattern)
	quoted := false
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '\'':
			quoted = !quoted
		case quoted:
		case r == 'E' || r == 'a':
			return true
		case r == 'M' && i+2 < len(runes) && runes[i+1] == 'M' && runes[i+2] == 'M':
			return true
		}
	}
	return false
}

// localeLanguage 取 locale 的语言部分，如 pt_BR、pt-BR 均为 pt.
func localeLanguage(locale string) string {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "-", "_")
	return strings.ToLower(strings.SplitN(locale, "_", 2)[0])
}

// CheckDateLocale 月份名与星期名只支持英文，纯数字的模式不受 locale 限制.
func CheckDateLocale(pattern, locale string) error {
	if !textualPattern(pattern) {
		return nil
	}
	if lang := localeLanguage(locale); lang == "" || lang == "en" {
		return nil
	}
	return validation.Fail(code.ErrValidation, validation.NewParameterError(
		"validation.msg.locale.not.supported",
		fmt.Sprintf("The parameter locale '%s' is not supported with dateFormat '%s', month and day names are parsed in English only.",
			locale, pattern),
		ParamLocale, locale))
}

// ParseLocalDate 按模式解析日期字符串，结果为本地零点.
func ParseLocalDate(value, pattern, locale string) (time.Time, error) {
	if strings.TrimSpace(pattern) == "" {
		return time.Time{}, errors.WithCode(code.ErrValidation, "dateFormat is required to parse %q", value)
	}
	if err := CheckDateLocale(pattern, locale); err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(ConvertDatePattern(pattern), strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, errors.WithCode(code.ErrValidation,
			"The parameter date (%s) is invalid based on the dateFormat: '%s' and locale: '%s' provided", value, pattern, locale)
	}
	return t, nil
}

// FormatLocalDate 以 [yyyy, M, d] 形式输出日期.
func FormatLocalDate(t time.Time) []int {
	return []int{t.Year(), int(t.Month()), t.Day()}
}
