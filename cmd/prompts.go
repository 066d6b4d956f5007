package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/encodeous/sospf/state"
	"github.com/manifoldco/promptui"
)

func promptDefaultStr(label string, def string, validateFunc promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
		Validate:  validateFunc,
	}
	return prompt.Run()
}

func promptYN(prefix string, def bool) bool {
	choose := promptui.Select{
		Label:     prefix,
		Items:     []string{"Yes", "No"},
		Size:      2,
		CursorPos: 0,
	}
	if !def {
		choose.CursorPos = 1
	}
	run, _, err := choose.Run()
	if err != nil {
		return false
	}
	return run == 0
}

func promptInt(label string, def int, validateFunc func(int) error) (int, error) {
	val, err := promptDefaultStr(label, strconv.Itoa(def), func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", state.ErrInvalidArgument, s)
		}
		return validateFunc(v)
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// promptNeighbour asks for one link to attach at startup
func promptNeighbour() (state.NeighbourCfg, error) {
	var n state.NeighbourCfg
	id, err := promptDefaultStr("neighbour id", "", state.IPv4Validator)
	if err != nil {
		return n, err
	}
	addr, err := promptDefaultStr("neighbour address", "127.0.0.1", state.IPv4Validator)
	if err != nil {
		return n, err
	}
	port, err := promptInt("neighbour port", state.DefaultPort, state.PortValidator)
	if err != nil {
		return n, err
	}
	weight, err := promptInt("link weight", 1, state.WeightValidator)
	if err != nil {
		return n, err
	}
	n.Id = state.NodeId(id)
	n.Addr, err = netipAddr(addr)
	n.Port = uint16(port)
	n.Weight = uint16(weight)
	return n, err
}

func safeSaveFile(path string, name string) (string, error) {
	for {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		fmt.Printf("Where do you want to save the %s?\n", name)
		path, err = promptDefaultStr("path", abs, state.PathValidator)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return path, nil
		}
		fmt.Printf("Warning: %s file already exists: %s, do you want to overwrite it?\n", name, path)
		if promptYN("Overwrite?", false) {
			return path, nil
		}
	}
}
