package pkgmgr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// 允许 ports 的 category/name、npm 的 @scope/name 以及常见版本符号
var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9@_][A-Za-z0-9@._+/:=~-]*$`)

var nameValidator = newNameValidator()

func newNameValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("packagename", ValidatePackageName)
	return v
}

// ValidatePackageName 包名验证规则，可注册到其他 validator 实例
func ValidatePackageName(fl validator.FieldLevel) bool {
	return packageNamePattern.MatchString(fl.Field().String())
}

// Normalize 将包列表规范化为名称序列
//
// 每个参数都按空白拆分，空项被丢弃；保留调用方给出的顺序，不去重。
// 因此 Normalize("a b  c") 与 Normalize("a", "b", "c") 结果相同。
func Normalize(pkgs ...string) []string {
	names := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		names = append(names, strings.Fields(pkg)...)
	}
	return names
}

// ValidateName 验证单个包名
func ValidateName(name string) error {
	if err := nameValidator.Var(name, "packagename"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPackageName, name)
	}
	return nil
}

// normalizeAndCheck 规范化并逐个验证包名
func normalizeAndCheck(pkgs []string) ([]string, error) {
	names := Normalize(pkgs...)
	for _, name := range names {
		if err := ValidateName(name); err != nil {
			return nil, err
		}
	}
	return names, nil
}
