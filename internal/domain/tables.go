package domain

var Tables = []interface{}{
	&SpeedtestResult{},
	&SpeedtestResultArchive{},
	&Status{},
}
