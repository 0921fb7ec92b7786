package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/xilytix/revdatasource/internal/dataset"
)

// pageParams is the data rendered into the grid page.
type pageParams struct {
	Title    string
	Page     dataset.Page
	PageSize int
}

// handlePage renders the grid page with the first window of the view.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.data.Window(0, s.cfg.Dataset.PageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	templ.Handler(gridPage(pageParams{
		Title:    "Dataset: " + s.cfg.Dataset.Preset,
		Page:     page,
		PageSize: s.cfg.Dataset.PageSize,
	})).ServeHTTP(w, r)
}

// gridPage renders the full HTML document.
func gridPage(p pageParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := templ.EscapeString(p.Title)
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body><h1>%s</h1>`,
			title, pageStyle, title); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<p id="status">%d records</p><div id="grid" data-page-size="%d">`,
			p.Page.Total, p.PageSize); err != nil {
			return err
		}
		if err := gridTable(p.Page).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `</div><nav><button id="prev">Previous</button><button id="next">Next</button><button id="clear">Clear marks</button></nav><script>%s</script></body></html>`, pageScript)
		return err
	})
}

// gridTable renders one window as a table. Clicking a heading sorts by it.
func gridTable(page dataset.Page) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		dirs := make(map[string]string, len(page.Sorts))
		for _, s := range page.Sorts {
			dirs[s.Column] = s.Dir
		}

		var b strings.Builder
		b.WriteString(`<table><thead><tr>`)
		for _, f := range page.Fields {
			arrow := ""
			switch dirs[f.Name] {
			case "asc":
				arrow = " &#9650;"
			case "desc":
				arrow = " &#9660;"
			}
			fmt.Fprintf(&b, `<th data-field="%s" data-type="%s">%s%s</th>`,
				templ.EscapeString(f.Name), templ.EscapeString(f.Type), templ.EscapeString(f.Heading), arrow)
		}
		b.WriteString(`</tr></thead><tbody>`)
		for _, row := range page.Rows {
			fmt.Fprintf(&b, `<tr data-id="%s">`, row.ID)
			for i, c := range row.Cells {
				class := c.Changed
				switch {
				case c.Stale:
					class = "stale"
				case c.Undefined:
					class = "undefined"
				}
				computed := i < len(page.Fields) && page.Fields[i].Computed
				fmt.Fprintf(&b, `<td class="%s"%s>%s</td>`,
					class, editable(computed), templ.EscapeString(c.Text))
			}
			b.WriteString(`</tr>`)
		}
		b.WriteString(`</tbody></table>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func editable(computed bool) string {
	if computed {
		return ""
	}
	return ` contenteditable="true"`
}

const pageStyle = `body{font-family:sans-serif;margin:1rem}
table{border-collapse:collapse}
th,td{border:1px solid #ccc;padding:2px 6px}
th{cursor:pointer;background:#f4f4f4}
td.undefined{background:#fafafa;color:#999}
td.increase{color:#060}
td.decrease{color:#a00}
td.update{font-style:italic}
td.record{background:#eef6ff}
td.stale{background:#fafafa;color:#bbb;font-style:italic}`

const pageScript = `(function(){
var grid=document.getElementById('grid'),status=document.getElementById('status');
var size=+grid.dataset.pageSize,offset=0,total=0,sort=null,dir='asc';
function esc(s){var d=document.createElement('div');d.textContent=s;return d.innerHTML;}
function render(p){total=p.total;
var h='<table><thead><tr>';p.fields.forEach(function(f){h+='<th data-field="'+esc(f.name)+'">'+esc(f.heading)+'</th>';});
h+='</tr></thead><tbody>';p.rows.forEach(function(r){h+='<tr data-id="'+r.id+'">';
r.cells.forEach(function(c,i){var cls=c.stale?'stale':(c.undefined?'undefined':(c.changed||''));
h+='<td class="'+cls+'"'+(p.fields[i].computed?'':' contenteditable="true"')+'>'+esc(c.text)+'</td>';});h+='</tr>';});
grid.innerHTML=h+'</tbody></table>';status.textContent=total+' records';}
function load(){var q='offset='+offset+'&count='+size;if(sort!==null){q+='&sort='+encodeURIComponent(sort)+'&dir='+dir;}
fetch('/api/records?'+q).then(function(r){return r.json();}).then(render);}
grid.addEventListener('click',function(e){var th=e.target.closest('th');if(!th)return;
var f=th.dataset.field;dir=(sort===f&&dir==='asc')?'desc':'asc';sort=f;offset=0;load();});
grid.addEventListener('focusout',function(e){var td=e.target.closest('td');if(!td||!td.isContentEditable)return;
var tr=td.parentNode,th=grid.querySelectorAll('th')[td.cellIndex];
fetch('/api/records/'+tr.dataset.id+'/values',{method:'POST',headers:{'Content-Type':'application/json'},
body:JSON.stringify({field:th.dataset.field,value:td.textContent})});});
document.getElementById('prev').onclick=function(){offset=Math.max(0,offset-size);load();};
document.getElementById('next').onclick=function(){if(offset+size<total){offset+=size;load();}};
document.getElementById('clear').onclick=function(){fetch('/api/marks/clear',{method:'POST'});};
var es=new EventSource('/api/events');
['records_reset','schema_changed','reordered','record_changed','record_added','record_removed','marks_cleared'].forEach(function(k){es.addEventListener(k,load);});
load();})();`
