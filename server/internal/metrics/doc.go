// Package metrics exposes QC state in the Prometheus text exposition format.
//
// Families are rebuilt from a registry snapshot on every scrape:
//
//	windowqc_floors                              number of floors
//	windowqc_windows{floor,floor_name,status}    windows per floor and status
//	windowqc_floor_pass_rate_percent{floor,...}  per-floor pass rate
//	windowqc_floor_max_deviation_mm{floor,...}   per-floor largest diagonal difference
//	windowqc_pass_rate_percent                   project pass rate
//	windowqc_max_deviation_mm                    project largest diagonal difference
//	windowqc_warning_multiplier                  current k
//	windowqc_alerts_firing                       firing alerts, when an alert source is set
package metrics
