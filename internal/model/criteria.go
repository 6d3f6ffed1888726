package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type CriteriaKind string

const (
	CriteriaLevel    CriteriaKind = "level"
	CriteriaStreak   CriteriaKind = "streak"
	CriteriaActivity CriteriaKind = "activity"
	// CriteriaManual 只能由管理员手动颁发
	CriteriaManual CriteriaKind = "manual"
)

var ErrInvalidCriteria = errors.New("invalid badge criteria")

// Criteria 徽章/触发条件。各触发方构造同一个值，按结构相等查询，不做字符串拼接。
//
// 数据库中的编码形式:
//
//	level:<n>
//	streak:<n>
//	<activity>:<verb>:<n>
//	manual
type Criteria struct {
	Kind     CriteriaKind
	Activity string
	Verb     string
	N        int
}

func LevelCriteria(level int) Criteria {
	return Criteria{Kind: CriteriaLevel, N: level}
}

func StreakCriteria(days int) Criteria {
	return Criteria{Kind: CriteriaStreak, N: days}
}

func ActivityCriteria(activity, verb string, count int) Criteria {
	return Criteria{
		Kind:     CriteriaActivity,
		Activity: strings.ToLower(activity),
		Verb:     strings.ToLower(verb),
		N:        count,
	}
}

func ManualCriteria() Criteria {
	return Criteria{Kind: CriteriaManual}
}

func (c Criteria) Validate() error {
	switch c.Kind {
	case CriteriaLevel, CriteriaStreak:
		if c.N < 1 {
			return fmt.Errorf("%w: %s threshold must be >= 1", ErrInvalidCriteria, c.Kind)
		}
	case CriteriaActivity:
		if c.Activity == "" || c.Verb == "" || c.N < 1 {
			return fmt.Errorf("%w: activity criteria needs activity, verb and count >= 1", ErrInvalidCriteria)
		}
		if strings.Contains(c.Activity, ":") || strings.Contains(c.Verb, ":") {
			return fmt.Errorf("%w: activity and verb must not contain ':'", ErrInvalidCriteria)
		}
		if c.Activity == string(CriteriaLevel) || c.Activity == string(CriteriaStreak) {
			return fmt.Errorf("%w: reserved activity name %q", ErrInvalidCriteria, c.Activity)
		}
	case CriteriaManual:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCriteria, c.Kind)
	}
	return nil
}

func (c Criteria) String() string {
	switch c.Kind {
	case CriteriaLevel, CriteriaStreak:
		return fmt.Sprintf("%s:%d", c.Kind, c.N)
	case CriteriaActivity:
		return fmt.Sprintf("%s:%s:%d", c.Activity, c.Verb, c.N)
	case CriteriaManual:
		return string(CriteriaManual)
	}
	return ""
}

// ParseCriteria 解析编码后的条件
func ParseCriteria(s string) (Criteria, error) {
	parts := strings.Split(strings.TrimSpace(strings.ToLower(s)), ":")
	var c Criteria
	switch {
	case len(parts) == 1 && parts[0] == string(CriteriaManual):
		c = ManualCriteria()
	case len(parts) == 2 && (parts[0] == string(CriteriaLevel) || parts[0] == string(CriteriaStreak)):
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: %q", ErrInvalidCriteria, s)
		}
		c = Criteria{Kind: CriteriaKind(parts[0]), N: n}
	case len(parts) == 3:
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: %q", ErrInvalidCriteria, s)
		}
		c = ActivityCriteria(parts[0], parts[1], n)
	default:
		return Criteria{}, fmt.Errorf("%w: %q", ErrInvalidCriteria, s)
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func (c Criteria) Value() (driver.Value, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c.String(), nil
}

func (c *Criteria) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*c = Criteria{}
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidCriteria, value)
	}
	parsed, err := ParseCriteria(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (Criteria) GormDataType() string {
	return "string"
}

func (c Criteria) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Criteria) UnmarshalText(text []byte) error {
	parsed, err := ParseCriteria(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
