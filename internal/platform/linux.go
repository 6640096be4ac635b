package platform

import (
	"bufio"
	"fmt"
	"strings"
)

// ParseLSB 解析 `lsb_release -a` 的键值输出
//
// 每个非空行都必须是 "键: 值" 形式，且必须包含 Distributor ID，
// 否则视为格式错误。
func ParseLSB(output string) (*Distribution, error) {
	dist := &Distribution{}
	lines := 0

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines++

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("LSB 输出格式无效: %q", line)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Distributor ID":
			dist.ID = value
		case "Description":
			dist.Description = value
		case "Release":
			dist.Release = value
		case "Codename":
			dist.Codename = value
		}
	}

	if lines == 0 {
		return nil, fmt.Errorf("LSB 输出为空")
	}

	if dist.ID == "" {
		return nil, fmt.Errorf("LSB 输出缺少 Distributor ID")
	}

	return dist, nil
}

// IsArch 检查是否为 Arch Linux
func (d *Distribution) IsArch() bool {
	id := strings.ToLower(d.ID)
	return id == "arch" || id == "archlinux"
}

// IsUbuntu 检查是否为 Ubuntu
func (d *Distribution) IsUbuntu() bool {
	return strings.EqualFold(d.ID, "ubuntu")
}

// IsDebian 检查是否为 Debian 系发行版
func (d *Distribution) IsDebian() bool {
	debianDistros := []string{"debian", "ubuntu", "linuxmint", "elementary", "raspbian"}
	for _, distro := range debianDistros {
		if strings.EqualFold(d.ID, distro) {
			return true
		}
	}
	return false
}

// PackageManager 推断发行版的原生包管理器
func (d *Distribution) PackageManager() string {
	switch {
	case d.IsArch():
		return "pacman"
	case d.IsDebian():
		return "apt"
	}
	return "unknown"
}

// String 返回发行版的可读形式
func (d *Distribution) String() string {
	if d.Codename != "" {
		return fmt.Sprintf("%s %s (%s)", d.ID, d.Release, d.Codename)
	}
	return fmt.Sprintf("%s %s", d.ID, d.Release)
}
