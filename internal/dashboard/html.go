package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>ShelfScout</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; color: #38bdf8; }
        .status { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; }
        .status.running { background: #166534; color: #4ade80; }
        .status.idle { background: #854d0e; color: #fde047; }
        .panel { padding: 1.5rem 2rem; display: flex; gap: 0.75rem; flex-wrap: wrap; align-items: end; }
        label { display: flex; flex-direction: column; font-size: 0.75rem; color: #94a3b8; gap: 0.25rem; }
        input { background: #1e293b; border: 1px solid #475569; color: #f1f5f9; border-radius: 8px; padding: 0.5rem 0.75rem; }
        input.url { width: 32rem; }
        input.small { width: 6rem; }
        button, a.button { background: #0284c7; color: white; border: 0; border-radius: 8px; padding: 0.55rem 1rem; font-weight: 600; cursor: pointer; text-decoration: none; font-size: 0.875rem; }
        button.ghost { background: #334155; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 1rem; padding: 0 2rem 1rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1rem; }
        .card .label { font-size: 0.7rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; }
        .card .value { font-size: 1.5rem; font-weight: 700; color: #38bdf8; }
        .msg { padding: 0 2rem; color: #fbbf24; min-height: 1.5rem; }
        .runs { padding: 0 2rem 1rem; display: flex; gap: 0.5rem; flex-wrap: wrap; }
        .item { display: grid; grid-template-columns: 120px 1fr; gap: 1rem; margin: 0 2rem; padding: 1rem 0; border-bottom: 1px solid #334155; }
        .item img { width: 110px; border-radius: 6px; background: white; }
        .item .title { font-weight: 700; }
        .item .caption { font-size: 0.8rem; color: #94a3b8; word-break: break-all; }
        .item .price { color: #4ade80; font-weight: 600; }
        .item .mc { color: #fbbf24; font-size: 0.85rem; }
        .cands { margin-top: 0.5rem; display: flex; flex-direction: column; gap: 0.25rem; font-size: 0.85rem; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>ShelfScout: Best Sellers to Excel</h1>
        <span class="status idle" id="status">idle</span>
    </div>
    <div class="panel">
        <label>Best Sellers URL<input class="url" id="url" placeholder="https://www.amazon.com/gp/bestsellers/pc/17441247011"></label>
        <label>Run name<input id="name" placeholder="optional"></label>
        <label>Delay min (s)<input class="small" id="dmin" type="number" min="0" max="10" step="0.1" value="1.0"></label>
        <label>Delay max (s)<input class="small" id="dmax" type="number" min="0" max="10" step="0.1" value="1.0"></label>
        <button id="fetch">Fetch Top 20</button>
        <a class="button" id="download" style="display:none">Download Spreadsheet</a>
    </div>
    <div class="msg" id="msg"></div>
    <div class="grid">
        <div class="card"><div class="label">Detail Fetches</div><div class="value" id="detail_fetches">0</div></div>
        <div class="card"><div class="label">Detail Failures</div><div class="value" id="detail_failures">0</div></div>
        <div class="card"><div class="label">Records Built</div><div class="value" id="records_built">0</div></div>
        <div class="card"><div class="label">Catalog Lookups</div><div class="value" id="catalog_lookups">0</div></div>
        <div class="card"><div class="label">Thumbnails</div><div class="value" id="images_resized">0</div></div>
    </div>
    <div class="runs" id="runs"></div>
    <div id="records"></div>
    <div class="footer">ShelfScout. Stats refresh every 2s</div>
    <script>
        let current = null;
        const $ = id => document.getElementById(id);
        const el = (tag, cls, text) => { const e = document.createElement(tag); if (cls) e.className = cls; if (text !== undefined) e.textContent = text; return e; };

        async function api(path, opts) {
            const r = await fetch(path, opts);
            const body = r.status === 204 ? null : await r.json();
            if (!r.ok) throw new Error((body && body.error) || r.statusText);
            return body;
        }

        async function refresh() {
            try {
                const d = await api('/api/stats');
                $('status').textContent = d.state;
                $('status').className = 'status ' + d.state;
                ['detail_fetches','detail_failures','records_built','catalog_lookups','images_resized'].forEach(k => {
                    if (d.counters[k] !== undefined) $(k).textContent = Number(d.counters[k]).toLocaleString();
                });
            } catch (e) {}
        }

        async function loadRuns() {
            try {
                const runs = await api('/api/runs');
                const box = $('runs');
                box.replaceChildren();
                runs.forEach(info => {
                    const b = el('button', 'ghost', info.name + ' (' + info.count + ')');
                    b.onclick = async () => show(await api('/api/runs/' + encodeURIComponent(info.name)));
                    box.appendChild(b);
                });
            } catch (e) {}
        }

        function show(run) {
            current = run;
            const dl = $('download');
            dl.href = '/api/runs/' + encodeURIComponent(run.name) + '/export';
            dl.style.display = '';
            const box = $('records');
            box.replaceChildren();
            run.records.forEach(r => box.appendChild(renderRecord(r)));
        }

        function renderRecord(r) {
            const row = el('div', 'item');
            const left = el('div');
            if (r.image_url) { const img = el('img'); img.src = r.image_url; img.loading = 'lazy'; left.appendChild(img); }
            else left.appendChild(el('div', 'caption', '(no image)'));
            const right = el('div');
            right.appendChild(el('div', 'title', '#' + r.rank + ': ' + (r.title || '(no title)')));
            if (r.popularity) right.appendChild(el('div', 'caption', r.popularity));
            right.appendChild(el('div', 'price', r.price || ''));
            right.appendChild(el('div', 'caption', r.detail_url));
            const mc = el('div', 'mc', r.catalog_sku ? 'MC ' + r.catalog_sku + ' ' + r.catalog_title + ' ' + r.catalog_retail : '');
            right.appendChild(mc);
            const cands = el('div', 'cands');
            const b = el('button', 'ghost', 'Find Micro Center match');
            b.onclick = () => match(r, cands);
            right.appendChild(b);
            right.appendChild(cands);
            row.append(left, right);
            return row;
        }

        async function match(r, box) {
            box.replaceChildren(el('div', 'caption', 'searching...'));
            const res = await api('/api/match?q=' + encodeURIComponent(r.title) + '&limit=3');
            box.replaceChildren();
            if (!res.candidates.length) { box.appendChild(el('div', 'caption', 'no matches')); return; }
            res.candidates.forEach(c => {
                const line = el('div');
                const use = el('button', 'ghost', 'Use');
                use.onclick = async () => {
                    await api('/api/runs/' + encodeURIComponent(current.name) + '/annotate', {
                        method: 'POST', headers: {'Content-Type': 'application/json'},
                        body: JSON.stringify({rank: r.rank, candidate: c}),
                    });
                    show(await api('/api/runs/' + encodeURIComponent(current.name)));
                };
                line.append(use, el('span', '', ' ' + c.catalog_identifier + '  ' + c.catalog_title + '  ' + (c.current_price || '') + '  (' + c.match_score.toFixed(2) + ')'));
                box.appendChild(line);
            });
        }

        $('fetch').onclick = async () => {
            const url = $('url').value.trim();
            if (!/^https?:\/\//.test(url)) { $('msg').textContent = 'Please enter a valid URL that starts with http(s)://'; return; }
            $('msg').textContent = 'Fetching top items...';
            $('fetch').disabled = true;
            try {
                const body = {url: url, delay_min: parseFloat($('dmin').value), delay_max: parseFloat($('dmax').value)};
                if ($('name').value.trim()) body.name = $('name').value.trim();
                const run = await api('/api/runs', {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body)});
                $('msg').textContent = run.records.length + ' items fetched.';
                show(run);
                loadRuns();
            } catch (e) {
                $('msg').textContent = 'Failed: ' + e.message;
            } finally {
                $('fetch').disabled = false;
            }
        };

        setInterval(refresh, 2000);
        refresh();
        loadRuns();
    </script>
</body>
</html>`
