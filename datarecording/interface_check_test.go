package datarecording

var _ DataRecorder = (*SQLiteWriter)(nil)
var _ DataReader = (*sqliteReader)(nil)
