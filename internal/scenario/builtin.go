package scenario

func ptr[T any](v T) *T { return &v }

// BuiltIn returns the reference scenarios shipped with the binary.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"corner-exit": {
			Name:        "corner-exit",
			Description: "One agent in the far corner of an empty room walks to the exit without fire.",
			Plan:        "E....\n.....\n.....\n.....\n....A\n",
			Simulation:  Overrides{Ignition: "none", SpreadProb: ptr(0.0), Seed: ptr(int64(1))},
			Expect:      &Expect{Escaped: ptr(1), Burned: ptr(0), Ticks: ptr(8)},
		},
		"enclosed": {
			Name:        "enclosed",
			Description: "An agent walled into a closet has no route out and stays put.",
			Plan:        "E....\n.###.\n.#A#.\n.###.\n.....\n",
			Simulation:  Overrides{Ignition: "none", MaxTicks: ptr(10)},
			Expect:      &Expect{Unresolved: ptr(1), Ticks: ptr(10)},
		},
		"blocked-exit": {
			Name:        "blocked-exit",
			Description: "Fire reaches the only exit of a corridor before the agent does.",
			Plan:        "#######\nE.F..A#\n#######\n",
			Simulation:  Overrides{SpreadProb: ptr(1.0)},
			Expect:      &Expect{Burned: ptr(1), Ticks: ptr(3)},
		},
		"office": {
			Name:        "office",
			Description: "Open-plan floor with two exits and a central fire.",
			Plan: "E.........#.........\n" +
				"..........#.........\n" +
				"....###...#....###..\n" +
				"....#.....#.......#.\n" +
				"....#.............#.\n" +
				"..........###.......\n" +
				"####....#...........\n" +
				"........#......#####\n" +
				"........#...........\n" +
				".........E..........\n",
			Simulation: Overrides{NumAgents: ptr(12), SpreadProb: ptr(0.25), Seed: ptr(int64(7))},
		},
	}
}
