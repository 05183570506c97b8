package config

// defaultDatasets returns the built-in field catalogs for the SkillCorner
// style open data files.
func defaultDatasets() map[string]DatasetConfig {
	return map[string]DatasetConfig{
		"metadata": {
			Description: "Match metadata containing team information, player details, competition info, and pitch dimensions",
			CriticalFields: []string{
				"id",
				"date_time",
				"competition_edition.competition.name",
				"players",
				"pitch_length",
				"pitch_width",
			},
			Categories: map[string][]string{
				"identification": {"id", "date_time", "status"},
				"teams":          {"home_team", "away_team", "home_team_kit", "away_team_kit", "home_team_coach", "away_team_coach"},
				"score":          {"home_team_score", "away_team_score", "home_team_side"},
				"competition":    {"competition_edition", "competition_round"},
				"pitch":          {"pitch_length", "pitch_width", "stadium"},
				"squad":          {"players", "referees"},
			},
			Descriptions: map[string]string{
				"home_team_side": "Attacking direction of the home team per period",
				"pitch_length":   "Pitch length (meters)",
				"pitch_width":    "Pitch width (meters)",
			},
		},
		"metadata_players": {
			Description:    "Player-specific information including identity, position, playing time, and statistics",
			CriticalFields: []string{"id", "team_id", "start_time", "end_time"},
			Categories: map[string][]string{
				"identity":     {"id", "short_name", "first_name", "last_name", "number", "trackable_object"},
				"team":         {"team_id"},
				"position":     {"player_role"},
				"playing_time": {"start_time", "end_time", "playing_time"},
			},
		},
		"tracking": {
			Description:    "Frame-by-frame tracking data showing positions of all players and the ball",
			CriticalFields: []string{"frame", "timestamp", "period", "ball_data.x", "ball_data.y", "player_data"},
			Categories: map[string][]string{
				"temporal":   {"frame", "timestamp", "period"},
				"ball":       {"ball_data"},
				"players":    {"player_data"},
				"possession": {"possession"},
			},
			Descriptions: map[string]string{
				"frame":                 "Frame number in the match",
				"timestamp":             "Time in match (HH:MM:SS.ms format)",
				"period":                "Match period (1 or 2)",
				"ball_data.x":           "Ball x-coordinate (meters)",
				"ball_data.y":           "Ball y-coordinate (meters)",
				"ball_data.z":           "Ball z-coordinate/height (meters)",
				"ball_data.is_detected": "Whether ball was detected in this frame",
				"player_data":           "Player positions with player_id, x, y and is_detected",
				"possession.player_id":  "ID of player in possession",
				"possession.group":      "Team in possession",
			},
		},
		"events": {
			Description: "Detailed event-level data including passes, shots, defensive actions, and advanced metrics",
			Categories: map[string][]string{
				"identification":   {"event_id", "index", "match_id"},
				"temporal":         {"frame_start", "frame_end", "time_start", "time_end", "minute_start", "second_start", "duration", "period"},
				"event_type":       {"event_type_id", "event_type", "event_subtype_id", "event_subtype"},
				"player_info":      {"player_id", "player_name", "player_position_id", "player_position"},
				"spatial":          {"x_start", "y_start", "x_end", "y_end", "channel_start", "channel_end", "third_start", "third_end"},
				"passing":          {"pass_distance", "pass_angle", "pass_direction", "pass_outcome", "high_pass"},
				"tactical":         {"phase_index", "team_in_possession_phase_type", "n_passing_options", "line_break"},
				"advanced_metrics": {"xpass_completion", "xthreat", "speed_avg", "distance_covered"},
			},
		},
		"phases": {
			Description: "Phase of play data capturing attacking and defending team phases",
			Categories: map[string][]string{
				"identification": {"index", "match_id"},
				"temporal":       {"frame_start", "frame_end", "time_start", "time_end", "minute_start", "second_start", "duration", "period"},
				"possession": {
					"attacking_side_id", "attacking_side", "team_in_possession_id", "team_in_possession_shortname",
					"n_player_possessions_in_phase", "team_possession_loss_in_phase",
					"team_possession_lead_to_goal", "team_possession_lead_to_shot",
				},
				"phase_type": {
					"team_in_possession_phase_type", "team_in_possession_phase_type_id",
					"team_out_of_possession_phase_type", "team_out_of_possession_phase_type_id",
				},
				"spatial": {
					"x_start", "y_start", "channel_id_start", "channel_start", "third_id_start", "third_start", "penalty_area_start",
					"x_end", "y_end", "channel_id_end", "channel_end", "third_id_end", "third_end", "penalty_area_end",
				},
				"team_shape": {
					"team_in_possession_width_start", "team_in_possession_width_end",
					"team_in_possession_length_start", "team_in_possession_length_end",
					"team_out_of_possession_width_start", "team_out_of_possession_width_end",
					"team_out_of_possession_length_start", "team_out_of_possession_length_end",
				},
			},
		},
		"enriched_tracking": {
			Description:    "Enriched tracking data combining frame-by-frame positions with player metadata",
			CriticalFields: []string{"match_id", "frame", "player_id", "x", "y", "team_id", "home_away"},
			Categories: map[string][]string{
				"temporal": {"frame", "timestamp", "period", "date_time"},
				"spatial":  {"x", "y", "is_detected", "ball_x", "ball_y", "ball_z", "ball_is_detected"},
				"player":   {"player_id", "short_name", "first_name", "last_name", "number", "is_goalkeeper", "position_group", "position_name", "position_acronym", "start_time", "end_time", "total_time_seconds"},
				"team":     {"team_id", "team_name", "home_away", "home_team_name", "away_team_name"},
				"tactical": {"direction_first_half", "direction_second_half", "possession_player_id", "possession_group"},
				"match":    {"match_id", "match_name"},
			},
		},
	}
}
