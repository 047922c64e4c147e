package config

import "sort"

func preset(env, task string, ctrl ControllerConfig, physics, taskParams map[string]any) *Config {
	return &Config{
		Environment: env,
		Task:        task,
		TimeLimit:   DefaultTimeLimit,
		Episodes:    DefaultEpisodes,
		Discount:    DefaultDiscount,
		Controller:  ctrl,
		Physics:     physics,
		TaskParams:  taskParams,
	}
}

var Presets = map[string]map[string]*Config{
	"moving_coil": {
		"open_loop": preset("moving_coil", "hold_target",
			ControllerConfig{Type: "zero"},
			map[string]any{"init_state": []float64{0.2, 0}}, nil),
		"hold": preset("moving_coil", "hold_target",
			ControllerConfig{Type: "pid", Kp: 4, Ki: 0.1, Kd: 2, Clip: true},
			map[string]any{"init_state": []float64{0.2, 0}}, nil),
		"step": preset("moving_coil", "step",
			ControllerConfig{Type: "pid", Kp: 4, Ki: 0.1, Kd: 2, Clip: true},
			nil, map[string]any{"x_goal2": 0.3, "t_step": 5.0}),
	},
	"moving_coil_2d": {
		"hold": preset("moving_coil_2d", "hold_target",
			ControllerConfig{Type: "pid", Kp: 4, Kd: 2, Clip: true},
			map[string]any{"init_state": []float64{0.2, -0.1, 0, 0}}, nil),
		"step": preset("moving_coil_2d", "step",
			ControllerConfig{Type: "pid", Kp: 4, Kd: 2, Clip: true},
			nil, map[string]any{"x_goal2": []float64{0, 0.25}, "t_step": 5.0}),
	},
	"tank": {
		"drain": preset("tank", "hold_target",
			ControllerConfig{Type: "zero"},
			nil, nil),
		"balance": preset("tank", "hold_target",
			ControllerConfig{Type: "constant", Action: []float64{1}},
			nil, nil),
		"step": preset("tank", "step",
			ControllerConfig{Type: "pid", Kp: 5, Ki: 1, Bias: []float64{1}, Clip: true},
			nil, map[string]any{"h_goal2": 0.8, "t_step": 5.0}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(environment, name string) *Config {
	envPresets, ok := Presets[environment]
	if !ok {
		return nil
	}
	cfg, ok := envPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(environment string) []string {
	envPresets, ok := Presets[environment]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(envPresets))
	for name := range envPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
