package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"正常 https 链接", "https://example.com/page", "https://example.com/page", false},
		{"正常 http 链接", "http://example.com", "http://example.com", false},
		{"首尾空白被去除", "  https://example.com/page  ", "https://example.com/page", false},
		{"空字符串", "", "", true},
		{"纯空白", "   ", "", true},
		{"缺少协议", "example.com/page", "", true},
		{"ftp 协议被拒绝", "ftp://example.com", "", true},
		{"localhost 被拒绝", "http://localhost/admin", "", true},
		{"localhost 子域被拒绝", "http://foo.localhost/x", "", true},
		{"回环地址被拒绝", "http://127.0.0.1:8080/x", "", true},
		{"未指定地址被拒绝", "http://0.0.0.0/x", "", true},
		{"10 网段被拒绝", "http://10.1.2.3/x", "", true},
		{"192.168 网段被拒绝", "http://192.168.0.1/x", "", true},
		{"172.16 网段被拒绝", "http://172.16.0.1/x", "", true},
		{"172.31 网段被拒绝", "http://172.31.255.255/x", "", true},
		{"172.32 是公网地址", "http://172.32.0.1/x", "http://172.32.0.1/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateURL(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestValidateURL_Idempotent 校验是纯函数：同一输入多次校验结论一致，
// 且去除空白不改变结论
func TestValidateURL_Idempotent(t *testing.T) {
	first, err1 := ValidateURL("https://example.com/page")
	second, err2 := ValidateURL("https://example.com/page")
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, first, second)

	padded, err := ValidateURL("\t https://example.com/page \n")
	assert.NoError(t, err)
	assert.Equal(t, first, padded)
}

func TestValidateTTLMinutes(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		input   *float64
		want    int
		wantErr bool
	}{
		{"缺省时使用默认值", nil, 30, false},
		{"正常值", f(60), 60, false},
		{"四舍五入向下", f(10.4), 10, false},
		{"四舍五入向上", f(10.6), 11, false},
		{"零被拒绝", f(0), 0, true},
		{"负数被拒绝", f(-5), 0, true},
		{"一年上限", f(525600), 525600, false},
		{"超过一年被拒绝", f(525601), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTTLMinutes(tt.input, 30)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCustomCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"合法短码", "abcd", "abcd", false},
		{"大小写数字混合", "Abc123XYZ9", "Abc123XYZ9", false},
		{"空白被去除", " abcd ", "abcd", false},
		{"最长 20 位", "a1234567890123456789", "a1234567890123456789", false},
		{"太短", "abc", "", true},
		{"太长", "a12345678901234567890", "", true},
		{"包含连字符", "ab-cd", "", true},
		{"包含下划线", "ab_cd", "", true},
		{"空字符串", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCustomCode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePagination(t *testing.T) {
	t.Run("缺省值", func(t *testing.T) {
		page, limit, err := ValidatePagination("", "")
		assert.NoError(t, err)
		assert.Equal(t, 1, page)
		assert.Equal(t, DefaultPageLimit, limit)
	})

	t.Run("正常参数", func(t *testing.T) {
		page, limit, err := ValidatePagination("2", "10")
		assert.NoError(t, err)
		assert.Equal(t, 2, page)
		assert.Equal(t, 10, limit)
	})

	t.Run("page 为 0 被拒绝", func(t *testing.T) {
		_, _, err := ValidatePagination("0", "10")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("limit 超过上限被拒绝", func(t *testing.T) {
		_, _, err := ValidatePagination("1", "1001")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("非数字被拒绝", func(t *testing.T) {
		_, _, err := ValidatePagination("abc", "10")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}
