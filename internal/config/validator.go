package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	// [user@]host，host 可以是 ssh_config 中的别名或 IP
	hostPattern  = regexp.MustCompile(`^([A-Za-z0-9._-]+@)?[A-Za-z0-9_][A-Za-z0-9._:-]*$`)
	groupPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)
)

// Validator 配置验证器
type Validator struct {
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewValidator 创建配置验证器
func NewValidator(logger *logrus.Logger) *Validator {
	v := validator.New()
	cv := &Validator{
		validator: v,
		logger:    logger,
	}

	// 注册自定义验证规则
	v.RegisterValidation("hostname_or_alias", validateHost)
	v.RegisterValidation("hostref", validateHostRef)
	v.RegisterValidation("groupname", validateGroupName)
	v.RegisterValidation("packagename", pkgmgr.ValidatePackageName)

	return cv
}

// Validate 验证完整配置
func (cv *Validator) Validate(cfg *Config) error {
	cv.logger.Debug("开始配置验证")

	if err := cv.validator.Struct(cfg); err != nil {
		return cv.formatValidationError(err)
	}

	if cfg.SSH.InsecureIgnoreHostKey {
		cv.logger.Warn("已关闭 SSH 主机密钥验证")
	}

	cv.logger.Debug("配置验证通过")
	return nil
}

// ValidateHosts 验证展开后的主机列表
func (cv *Validator) ValidateHosts(hosts []string) error {
	for _, host := range hosts {
		if err := cv.validator.Var(host, "hostname_or_alias"); err != nil {
			return fmt.Errorf("无效的主机: %q", host)
		}
	}
	return nil
}

func validateHost(fl validator.FieldLevel) bool {
	return hostPattern.MatchString(fl.Field().String())
}

// validateHostRef 主机或 @主机组；组内成员只能是主机
func validateHostRef(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if name, ok := strings.CutPrefix(value, GroupPrefix); ok {
		return groupPattern.MatchString(name)
	}
	return hostPattern.MatchString(value)
}

func validateGroupName(fl validator.FieldLevel) bool {
	return groupPattern.MatchString(fl.Field().String())
}

// formatValidationError 格式化验证错误
func (cv *Validator) formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("验证错误格式异常: %w", err)
	}

	var messages []string
	for _, fieldErr := range validationErrors {
		fieldName := fieldErr.Namespace()

		switch fieldErr.Tag() {
		case "min":
			messages = append(messages, fmt.Sprintf("字段 %s 不能小于 %s", fieldName, fieldErr.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("字段 %s 不能大于 %s", fieldName, fieldErr.Param()))
		case "hostname_or_alias", "hostref":
			messages = append(messages, fmt.Sprintf("字段 %s 必须是有效的主机名或别名: %v", fieldName, fieldErr.Value()))
		case "groupname":
			messages = append(messages, fmt.Sprintf("字段 %s 的名称无效: %v", fieldName, fieldErr.Value()))
		case "packagename":
			messages = append(messages, fmt.Sprintf("字段 %s 必须是有效的包名: %v", fieldName, fieldErr.Value()))
		default:
			messages = append(messages, fmt.Sprintf("字段 %s 验证失败: %s", fieldName, fieldErr.Tag()))
		}
	}

	return fmt.Errorf("配置验证失败:\n  - %s", strings.Join(messages, "\n  - "))
}
