package odctopology

import "testing"

func sampleDoc() *Document {
	return &Document{
		Main: Group{
			Name: "main",
			Collections: []Collection{
				{
					Name: "RootColl",
					N:    2,
					Requirements: []Requirement{
						{Name: "GroupName", Value: "G0"},
						{Name: "odc_nmin_RootColl", Value: "1"},
					},
				},
			},
			Groups: []Group{
				{
					Name: "G",
					N:    4,
					Collections: []Collection{
						{
							Name: "C",
							N:    4,
							Tasks: []Task{
								{ID: "t1", Name: "T", Requirements: []Requirement{
									{Name: "odc_expendable_T", Value: "true"},
								}},
								{ID: "t2", Name: "T2", Requirements: []Requirement{
									{Name: "odc_expendable_T2", Value: "false"},
								}},
								{ID: "t3", Name: "T3", Requirements: []Requirement{
									{Name: "odc_expendable_T3", Value: "maybe"},
								}},
							},
							Requirements: []Requirement{
								{Name: "GroupName", Value: "G"},
								{Name: "odc_ncores_C", Value: "8"},
								{Name: "odc_zone_C", Value: "Z"},
								{Name: "odc_nmin_C", Value: "2"},
								{Name: "HostName", Value: "ignored"},
							},
						},
					},
				},
			},
		},
	}
}

func TestExtract_Expendable(t *testing.T) {
	res := Extract(sampleDoc(), nil)
	if _, ok := res.Expendable["t1"]; !ok {
		t.Error("expected t1 to be expendable")
	}
	if _, ok := res.Expendable["t2"]; ok {
		t.Error("t2 should not be expendable")
	}
	if _, ok := res.Expendable["t3"]; ok {
		t.Error("t3 has an unrecognised value and should not be expendable")
	}
}

func TestExtract_NInfo_OnlyNonRootParent(t *testing.T) {
	res := Extract(sampleDoc(), nil)

	if _, ok := res.NInfo["RootColl"]; ok {
		t.Error("RootColl's parent is the root group; its odc_nmin_* must be ignored")
	}

	entry, ok := res.NInfo["C"]
	if !ok {
		t.Fatal("expected C in NInfo")
	}
	if entry.NOriginal != 4 || entry.NCurrent != 4 || entry.NMin != 2 || entry.AgentGroup != "G" {
		t.Errorf("entry = %+v, want {4 4 2 G}", entry)
	}
}

func TestExtract_ZoneInfos(t *testing.T) {
	res := Extract(sampleDoc(), nil)

	groups, ok := res.ZoneInfos["Z"]
	if !ok || len(groups) != 1 {
		t.Fatalf("ZoneInfos[Z] = %+v, want one entry", groups)
	}
	if groups[0].N != 4 || groups[0].NCores != 8 || groups[0].AgentGroup != "G" {
		t.Errorf("groups[0] = %+v, want {4 8 G}", groups[0])
	}
}

func TestExtract_NInfoAbsentWithoutNMin(t *testing.T) {
	doc := &Document{
		Main: Group{
			Groups: []Group{
				{
					Name: "G",
					Collections: []Collection{
						{
							Name: "NoNMin",
							N:    3,
							Requirements: []Requirement{
								{Name: "GroupName", Value: "G"},
							},
						},
					},
				},
			},
		},
	}
	res := Extract(doc, nil)
	if _, ok := res.NInfo["NoNMin"]; ok {
		t.Error("collection without odc_nmin_* should not appear in NInfo")
	}
}
